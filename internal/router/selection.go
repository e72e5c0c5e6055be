package router

// Selection is the selected layer and the number of layers on offer. It is
// always replaced as a whole so readers never see a count that contradicts
// the selection.
type Selection struct {
	Layer      int `json:"layer" yaml:"layer"`
	LayerCount int `json:"layer_count" yaml:"layer_count"`
}

func NewSelection(layerCount int) Selection {
	return Selection{Layer: 1, LayerCount: layerCount}.normalize()
}

// Select clamps n into [1, LayerCount].
func (s Selection) Select(n int) Selection {
	s.Layer = n
	return s.normalize()
}

func (s Selection) Add() Selection {
	s.LayerCount++
	return s.normalize()
}

// Remove drops the highest layer, never below one, pulling the selection
// down with it when needed.
func (s Selection) Remove() Selection {
	s.LayerCount--
	return s.normalize()
}

func (s Selection) Valid() bool {
	return s.LayerCount >= 1 && s.Layer >= 1 && s.Layer <= s.LayerCount
}

func (s Selection) normalize() Selection {
	if s.LayerCount < 1 {
		s.LayerCount = 1
	}
	if s.Layer < 1 {
		s.Layer = 1
	}
	if s.Layer > s.LayerCount {
		s.Layer = s.LayerCount
	}
	return s
}

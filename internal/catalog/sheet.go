package catalog

// Entry is the printable form of a Command.
type Entry struct {
	Label   string `json:"label" yaml:"label"`
	Address string `json:"address" yaml:"address"`
	Args    []any  `json:"args" yaml:"args"`
}

func (c Command) Entry() Entry {
	return Entry{Label: c.Label, Address: c.Address.String(), Args: c.Args()}
}

// Sheet is the full command listing for one layer.
type Sheet struct {
	Layer      int     `json:"layer" yaml:"layer"`
	Clips      []Entry `json:"clips" yaml:"clips"`
	Layers     []Entry `json:"layers" yaml:"layers"`
	Opacity    []Entry `json:"opacity" yaml:"opacity"`
	Diagnostic Entry   `json:"diagnostic" yaml:"diagnostic"`
}

func NewSheet(layer, layerCount int) Sheet {
	layer = normalizeLayer(layer)
	return Sheet{
		Layer:      layer,
		Clips:      entries(ClipsForLayer(layer)),
		Layers:     entries(LayerCommandsFor(layerCount)),
		Opacity:    entries(OpacityPresets()),
		Diagnostic: Diagnostic().Entry(),
	}
}

func entries(cmds []Command) []Entry {
	out := make([]Entry, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, c.Entry())
	}
	return out
}

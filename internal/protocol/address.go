package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	segComposition = "composition"
	segLayers      = "layers"
)

// Address is a slash-delimited OSC path kept as segments. When the path
// contains a /composition/layers/<n>/ prefix, the index of <n> is recorded as
// the layer slot so retargeting is a field assignment.
type Address struct {
	segments []string
	layer    int // index into segments, -1 when there is no layer slot
}

// ParseAddress splits raw into segments and locates the first layer slot.
func ParseAddress(raw string) (Address, error) {
	if !strings.HasPrefix(raw, "/") || len(raw) < 2 {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
	}
	segments := strings.Split(raw[1:], "/")
	return Address{segments: segments, layer: findLayerSlot(segments)}, nil
}

// MustParseAddress panics on malformed input; meant for static tables.
func MustParseAddress(raw string) Address {
	addr, err := ParseAddress(raw)
	if err != nil {
		panic(err)
	}
	return addr
}

// LayerAddress builds /composition/layers/<layer>/<rest...>.
func LayerAddress(layer int, rest ...string) Address {
	segments := make([]string, 0, 3+len(rest))
	segments = append(segments, segComposition, segLayers, strconv.Itoa(layer))
	segments = append(segments, rest...)
	return Address{segments: segments, layer: 2}
}

// findLayerSlot returns the index of the first layer-number segment that is
// followed by at least one more segment, or -1.
func findLayerSlot(segments []string) int {
	for i := 0; i+3 < len(segments); i++ {
		if segments[i] == segComposition && segments[i+1] == segLayers && isDigits(segments[i+2]) {
			return i + 2
		}
	}
	return -1
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// HasLayer reports whether the address carries a layer slot.
func (a Address) HasLayer() bool {
	return a.layer >= 0 && a.layer < len(a.segments)
}

// Layer returns the layer number in the slot, if any.
func (a Address) Layer() (int, bool) {
	if !a.HasLayer() {
		return 0, false
	}
	n, err := strconv.Atoi(a.segments[a.layer])
	if err != nil {
		return 0, false
	}
	return n, true
}

// WithLayer returns a copy targeting layer. Addresses without a slot are
// returned unchanged.
func (a Address) WithLayer(layer int) Address {
	if !a.HasLayer() {
		return a
	}
	segments := make([]string, len(a.segments))
	copy(segments, a.segments)
	segments[a.layer] = strconv.Itoa(layer)
	return Address{segments: segments, layer: a.layer}
}

// IsZero reports whether the address was never set.
func (a Address) IsZero() bool {
	return len(a.segments) == 0
}

func (a Address) String() string {
	if a.IsZero() {
		return ""
	}
	return "/" + strings.Join(a.segments, "/")
}

// Package catalog generates the fixed set of Resolume commands the control
// surface offers. Everything here is deterministic and allocation-fresh: each
// call returns new slices, so callers may keep or modify results freely.
package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/danmuck/oscctl/internal/protocol"
)

const (
	ClipsPerLayer     = 12
	DefaultLayerCount = 3
)

var ErrUnknownCommand = errors.New("catalog: unknown command")

// Command is one logical control action: a label, a structured address, and
// its arguments. Values are immutable; Args returns a copy.
type Command struct {
	Label   string
	Address protocol.Address
	args    []any
}

func NewCommand(label string, addr protocol.Address, args ...any) Command {
	cp := make([]any, len(args))
	copy(cp, args)
	return Command{Label: label, Address: addr, args: cp}
}

func (c Command) Args() []any {
	out := make([]any, len(c.args))
	copy(out, c.args)
	return out
}

// ForLayer returns the command retargeted at layer.
func (c Command) ForLayer(layer int) Command {
	return Command{Label: c.Label, Address: c.Address.WithLayer(layer), args: c.args}
}

func (c Command) Message() protocol.Message {
	return protocol.Message{Address: c.Address.String(), Args: c.Args()}
}

func (c Command) String() string {
	return fmt.Sprintf("%s %s %v", c.Label, c.Address, c.args)
}

func normalizeLayer(layer int) int {
	if layer < 1 {
		return 1
	}
	return layer
}

// ClipsForLayer returns the clip-trigger grid for one layer, clip 1 first.
func ClipsForLayer(layer int) []Command {
	layer = normalizeLayer(layer)
	out := make([]Command, 0, ClipsPerLayer)
	for clip := 1; clip <= ClipsPerLayer; clip++ {
		out = append(out, NewCommand(
			"CLIP "+strconv.Itoa(clip),
			protocol.LayerAddress(layer, "clips", strconv.Itoa(clip), "connect"),
			protocol.Int(1),
		))
	}
	return out
}

// LayerCommands returns the solo commands for the default layer set.
func LayerCommands() []Command {
	return LayerCommandsFor(DefaultLayerCount)
}

// LayerCommandsFor returns solo commands for layers 1..count.
func LayerCommandsFor(count int) []Command {
	count = normalizeLayer(count)
	out := make([]Command, 0, count)
	for layer := 1; layer <= count; layer++ {
		out = append(out, NewCommand(
			"Layer "+strconv.Itoa(layer),
			protocol.LayerAddress(layer, "solo"),
			protocol.Int(1),
		))
	}
	return out
}

// OpacityPresets returns the canned opacity commands, authored on layer 1.
func OpacityPresets() []Command {
	return []Command{
		NewCommand("Opacity 100%", protocol.LayerAddress(1, "video", "opacity"), protocol.Float(1.0)),
		NewCommand("Opacity 50%", protocol.LayerAddress(1, "video", "opacity"), protocol.Float(0.5)),
	}
}

// OpacityAddresses returns the primary and mixer opacity paths for a layer.
// Receivers differ on which one they honour, so both are sent.
func OpacityAddresses(layer int) (primary, mixer protocol.Address) {
	layer = normalizeLayer(layer)
	return protocol.LayerAddress(layer, "video", "opacity"),
		protocol.LayerAddress(layer, "video", "mixer", "opacity")
}

// Diagnostic is the argument-less probe used to check reception.
func Diagnostic() Command {
	return NewCommand("Diagnostic", protocol.MustParseAddress("/composition/master"))
}

// Lookup finds a command by label (case-insensitive) among the clips of
// layer, the solo commands, the opacity presets, and the diagnostic probe.
func Lookup(layer int, label string) (Command, error) {
	want := strings.ToLower(strings.TrimSpace(label))
	if want == "" {
		return Command{}, fmt.Errorf("%w: empty label", ErrUnknownCommand)
	}
	layer = normalizeLayer(layer)
	groups := [][]Command{
		ClipsForLayer(layer),
		LayerCommandsFor(max(layer, DefaultLayerCount)),
		OpacityPresets(),
		{Diagnostic()},
	}
	for _, group := range groups {
		for _, cmd := range group {
			if strings.ToLower(cmd.Label) == want {
				return cmd, nil
			}
		}
	}
	return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, label)
}

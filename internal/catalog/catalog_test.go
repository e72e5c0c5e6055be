package catalog

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/danmuck/oscctl/internal/protocol"
	"github.com/danmuck/oscctl/internal/testutil/testlog"
)

func TestClipsForLayerShape(t *testing.T) {
	testlog.Start(t)
	clips := ClipsForLayer(2)
	if len(clips) != ClipsPerLayer {
		t.Fatalf("expected %d clips, got %d", ClipsPerLayer, len(clips))
	}
	for i, cmd := range clips {
		wantAddr := fmt.Sprintf("/composition/layers/2/clips/%d/connect", i+1)
		if cmd.Address.String() != wantAddr {
			t.Fatalf("clip %d address %q want %q", i+1, cmd.Address, wantAddr)
		}
		if cmd.Label != fmt.Sprintf("CLIP %d", i+1) {
			t.Fatalf("clip %d label %q", i+1, cmd.Label)
		}
		if !reflect.DeepEqual(cmd.Args(), []any{protocol.Int(1)}) {
			t.Fatalf("clip %d args %#v", i+1, cmd.Args())
		}
	}
}

func TestClipsForLayerIsDeterministic(t *testing.T) {
	testlog.Start(t)
	a := ClipsForLayer(3)
	b := ClipsForLayer(3)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("repeated calls must produce equal catalogs")
	}
	a[0].Args()[0] = protocol.Int(99)
	if !reflect.DeepEqual(ClipsForLayer(3)[0].Args(), []any{protocol.Int(1)}) {
		t.Fatalf("catalog must not be mutable through Args")
	}
}

func TestLayerCommandsAndPresets(t *testing.T) {
	testlog.Start(t)
	layers := LayerCommands()
	if len(layers) != DefaultLayerCount {
		t.Fatalf("expected %d layer commands, got %d", DefaultLayerCount, len(layers))
	}
	if layers[2].Address.String() != "/composition/layers/3/solo" || layers[2].Label != "Layer 3" {
		t.Fatalf("unexpected layer command %s", layers[2])
	}
	if got := len(LayerCommandsFor(5)); got != 5 {
		t.Fatalf("expected 5 layer commands, got %d", got)
	}

	presets := OpacityPresets()
	if len(presets) != 2 {
		t.Fatalf("expected 2 presets, got %d", len(presets))
	}
	if !reflect.DeepEqual(presets[1].Args(), []any{protocol.Float(0.5)}) {
		t.Fatalf("unexpected 50%% preset args %#v", presets[1].Args())
	}
	if presets[0].Address.String() != "/composition/layers/1/video/opacity" {
		t.Fatalf("unexpected preset address %s", presets[0].Address)
	}
}

func TestOpacityAddressesAndDiagnostic(t *testing.T) {
	testlog.Start(t)
	primary, mixer := OpacityAddresses(4)
	if primary.String() != "/composition/layers/4/video/opacity" {
		t.Fatalf("primary %s", primary)
	}
	if mixer.String() != "/composition/layers/4/video/mixer/opacity" {
		t.Fatalf("mixer %s", mixer)
	}
	diag := Diagnostic()
	if diag.Address.String() != "/composition/master" || len(diag.Args()) != 0 {
		t.Fatalf("unexpected diagnostic %s", diag)
	}
	if diag.Address.HasLayer() {
		t.Fatalf("diagnostic must not carry a layer slot")
	}
}

func TestCommandForLayer(t *testing.T) {
	testlog.Start(t)
	cmd := ClipsForLayer(1)[2].ForLayer(3)
	if cmd.Address.String() != "/composition/layers/3/clips/3/connect" {
		t.Fatalf("unexpected retarget %s", cmd.Address)
	}
	msg := cmd.Message()
	if msg.Address != "/composition/layers/3/clips/3/connect" || len(msg.Args) != 1 {
		t.Fatalf("unexpected message %s", msg)
	}
}

func TestLookup(t *testing.T) {
	testlog.Start(t)
	cmd, err := Lookup(2, "clip 3")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if cmd.Address.String() != "/composition/layers/2/clips/3/connect" {
		t.Fatalf("unexpected lookup result %s", cmd)
	}
	if _, err := Lookup(1, "Opacity 50%"); err != nil {
		t.Fatalf("lookup preset: %v", err)
	}
	if _, err := Lookup(5, "Layer 5"); err != nil {
		t.Fatalf("lookup solo beyond default count: %v", err)
	}
	if _, err := Lookup(1, "diagnostic"); err != nil {
		t.Fatalf("lookup diagnostic: %v", err)
	}
	if _, err := Lookup(1, "CLIP 13"); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
	if _, err := Lookup(1, " "); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand for blank label, got %v", err)
	}
}

func TestNewSheet(t *testing.T) {
	testlog.Start(t)
	sheet := NewSheet(2, 4)
	if sheet.Layer != 2 || len(sheet.Clips) != ClipsPerLayer || len(sheet.Layers) != 4 {
		t.Fatalf("unexpected sheet shape: layer=%d clips=%d layers=%d", sheet.Layer, len(sheet.Clips), len(sheet.Layers))
	}
	if sheet.Clips[0].Address != "/composition/layers/2/clips/1/connect" {
		t.Fatalf("unexpected first clip %+v", sheet.Clips[0])
	}
	if sheet.Diagnostic.Address != "/composition/master" || len(sheet.Diagnostic.Args) != 0 {
		t.Fatalf("unexpected diagnostic entry %+v", sheet.Diagnostic)
	}
	if got := NewSheet(0, 0); got.Layer != 1 || len(got.Layers) != 1 {
		t.Fatalf("expected clamped sheet, got layer=%d layers=%d", got.Layer, len(got.Layers))
	}
}

// cc_script_test.go - Lua CC mapping loader tests

/*
░█▀█░█▀▄░█▀▀░█▀▀░█▀▀░█▀▀░█▀█░█▀▀░█▀▀
░█▀▀░█▀▄░█▀▀░▀▀█░▀▀█░█▀▀░█░█░█░░░█▀▀
░▀░░░▀░▀░▀▀▀░▀▀▀░▀▀▀░▀▀▀░▀░▀░▀▀▀░▀▀▀

Pressence - a polyphonic subtractive MIDI synthesizer
https://github.com/pressence/pressence
License: GPLv3 or later
*/

package main

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeScript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mapping.lua")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCCScript_BasicMapping(t *testing.T) {
	path := writeScript(t, `
return {
  [1]  = { param = "waveform_shape" },
  [20] = { param = "filter_cutoff", curve = "exp", min = 200, max = 8000 },
  [96] = { param = "cycle_filter_mode" },
}
`)

	bindings, err := LoadCCMappingScript(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	shape := bindings[1]
	if shape.Op != CC_OP_WAVEFORM_SHAPE || shape.Curve != CC_CURVE_LINEAR {
		t.Errorf("CC1 binding = %+v", shape)
	}
	if shape.Min != 0 || shape.Max != 1 {
		t.Errorf("CC1 default range = [%v,%v], want [0,1]", shape.Min, shape.Max)
	}

	cutoff := bindings[20]
	if cutoff.Op != CC_OP_FILTER_CUTOFF || cutoff.Curve != CC_CURVE_EXP {
		t.Errorf("CC20 binding = %+v", cutoff)
	}
	if cutoff.Min != 200 || cutoff.Max != 8000 {
		t.Errorf("CC20 range = [%v,%v], want [200,8000]", cutoff.Min, cutoff.Max)
	}

	// Cycle ops default to edge behavior.
	if bindings[96].Curve != CC_CURVE_EDGE {
		t.Errorf("CC96 curve = %v, want edge", bindings[96].Curve)
	}
}

func TestCCScript_Errors(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{"not a table", `return 42`},
		{"syntax error", `return {`},
		{"unknown param", `return { [1] = { param = "flux_capacitor" } }`},
		{"missing param", `return { [1] = { curve = "linear" } }`},
		{"cc out of range", `return { [125] = { param = "filter_cutoff" } }`},
		{"unknown curve", `return { [1] = { param = "filter_cutoff", curve = "log" } }`},
		{"exp with zero min", `return { [1] = { param = "filter_cutoff", curve = "exp", min = 0, max = 10 } }`},
		{"entry not a table", `return { [1] = "filter_cutoff" }`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScript(t, tt.script)
			if _, err := LoadCCMappingScript(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestCCScript_MissingFile(t *testing.T) {
	if _, err := LoadCCMappingScript(filepath.Join(t.TempDir(), "nope.lua")); err == nil {
		t.Error("expected an error for a missing script")
	}
}

func TestCCScript_AppliedToEngine(t *testing.T) {
	path := writeScript(t, `
return {
  [30] = { param = "filter_cutoff", curve = "exp", min = 200, max = 2000 },
  [20] = { param = "none" },
}
`)

	e := newTestEngine(4)
	if err := ApplyCCMappingScript(e, path); err != nil {
		t.Fatalf("apply: %v", err)
	}

	// Remapped CC30 drives the cutoff now.
	feedEngine(e, 0xB0, 30, 127)
	got := float64(e.firstVoice.BaseCutoff())
	if math.Abs(got-2000) > 0.5 {
		t.Errorf("cutoff = %v after remapped CC30, want 2000", got)
	}

	// The old CC20 assignment was disabled.
	feedEngine(e, 0xB0, 20, 0)
	if got := float64(e.firstVoice.BaseCutoff()); math.Abs(got-2000) > 0.5 {
		t.Errorf("disabled CC20 still moved the cutoff to %v", got)
	}
}

// cc_script.go - Lua-defined controller mapping, compiled at startup

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
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// The CC hook itself must never run script code: Lua executes exactly
// once, at startup, and the resulting table is compiled into the engine's
// fixed CCBinding array. A mapping script returns a table keyed by CC
// number:
//
//	return {
//	  [1]  = { param = "waveform_shape" },
//	  [20] = { param = "filter_cutoff", curve = "exp", min = 100, max = 8000 },
//	  [96] = { param = "cycle_filter_mode" },
//	}

var ccParamOps = map[string]ccOp{
	"waveform_shape":     CC_OP_WAVEFORM_SHAPE,
	"filter_cutoff":      CC_OP_FILTER_CUTOFF,
	"filter_q":           CC_OP_FILTER_Q,
	"filter_env_attack":  CC_OP_FILTER_ENV_ATTACK,
	"filter_env_decay":   CC_OP_FILTER_ENV_DECAY,
	"filter_env_sustain": CC_OP_FILTER_ENV_SUSTAIN,
	"filter_env_release": CC_OP_FILTER_ENV_RELEASE,
	"output_drive":       CC_OP_OUTPUT_DRIVE,
	"post_filter_cutoff": CC_OP_POST_FILTER_CUTOFF,
	"post_filter_q":      CC_OP_POST_FILTER_Q,
	"cycle_filter_mode":  CC_OP_CYCLE_FILTER_MODE,
	"cycle_waveshaper":   CC_OP_CYCLE_WAVESHAPER,
	"clipboard_copy":     CC_OP_CLIPBOARD_COPY,
	"clipboard_paste":    CC_OP_CLIPBOARD_PASTE,
	"none":               CC_OP_NONE,
}

var ccCurveNames = map[string]ccCurve{
	"linear": CC_CURVE_LINEAR,
	"exp":    CC_CURVE_EXP,
	"edge":   CC_CURVE_EDGE,
}

// LoadCCMappingScript runs a Lua mapping file and returns the bindings it
// defines, keyed by CC number. Entries for CC numbers outside 0..119 or
// with unknown parameter names are errors: a silently dropped knob is
// much harder to debug than a startup failure.
func LoadCCMappingScript(path string) (map[uint8]CCBinding, error) {
	L := lua.NewState()
	defer L.Close()

	if err := L.DoFile(path); err != nil {
		return nil, fmt.Errorf("cc mapping %s: %w", path, err)
	}

	table, ok := L.Get(-1).(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("cc mapping %s: script must return a table", path)
	}

	bindings := make(map[uint8]CCBinding)
	var tableErr error
	table.ForEach(func(key, value lua.LValue) {
		if tableErr != nil {
			return
		}

		ccNum, ok := key.(lua.LNumber)
		if !ok {
			tableErr = fmt.Errorf("cc mapping %s: non-numeric CC key %q", path, key.String())
			return
		}
		cc := int(ccNum)
		if cc < 0 || cc >= MIDI_CC_MODE_MESSAGE {
			tableErr = fmt.Errorf("cc mapping %s: CC %d out of range 0..119", path, cc)
			return
		}

		entry, ok := value.(*lua.LTable)
		if !ok {
			tableErr = fmt.Errorf("cc mapping %s: CC %d entry must be a table", path, cc)
			return
		}

		binding, err := compileCCEntry(entry)
		if err != nil {
			tableErr = fmt.Errorf("cc mapping %s: CC %d: %w", path, cc, err)
			return
		}
		bindings[uint8(cc)] = binding
	})
	if tableErr != nil {
		return nil, tableErr
	}

	return bindings, nil
}

func compileCCEntry(entry *lua.LTable) (CCBinding, error) {
	paramVal := entry.RawGetString("param")
	paramName, ok := paramVal.(lua.LString)
	if !ok {
		return CCBinding{}, fmt.Errorf("missing param name")
	}

	op, ok := ccParamOps[string(paramName)]
	if !ok {
		return CCBinding{}, fmt.Errorf("unknown param %q", string(paramName))
	}

	binding := CCBinding{Op: op, Curve: CC_CURVE_LINEAR, Min: 0, Max: 1}
	switch op {
	case CC_OP_CYCLE_FILTER_MODE, CC_OP_CYCLE_WAVESHAPER,
		CC_OP_CLIPBOARD_COPY, CC_OP_CLIPBOARD_PASTE:
		binding.Curve = CC_CURVE_EDGE
	}

	if curveVal, ok := entry.RawGetString("curve").(lua.LString); ok {
		curve, known := ccCurveNames[string(curveVal)]
		if !known {
			return CCBinding{}, fmt.Errorf("unknown curve %q", string(curveVal))
		}
		binding.Curve = curve
	}
	if minVal, ok := entry.RawGetString("min").(lua.LNumber); ok {
		binding.Min = float32(minVal)
	}
	if maxVal, ok := entry.RawGetString("max").(lua.LNumber); ok {
		binding.Max = float32(maxVal)
	}

	if binding.Curve == CC_CURVE_EXP && (binding.Min <= 0 || binding.Max <= 0) {
		return CCBinding{}, fmt.Errorf("exp curve needs positive min/max")
	}

	return binding, nil
}

// ApplyCCMappingScript loads a mapping file into the engine on top of the
// default map.
func ApplyCCMappingScript(engine *Engine, path string) error {
	bindings, err := LoadCCMappingScript(path)
	if err != nil {
		return err
	}
	for cc, binding := range bindings {
		engine.SetCCBinding(cc, binding)
	}
	return nil
}

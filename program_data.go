// program_data.go - Synth preset data and JSON serialization

/*
░█▀█░█▀▄░█▀▀░█▀▀░█▀▀░█▀▀░█▀█░█▀▀░█▀▀
░█▀▀░█▀▄░█▀▀░▀▀█░▀▀█░█▀▀░█░█░█░░░█▀▀
░▀░░░▀░▀░▀▀▀░▀▀▀░▀▀▀░▀▀▀░▀░▀░▀▀▀░▀▀▀

Pressence - a polyphonic subtractive MIDI synthesizer
https://github.com/pressence/pressence
License: GPLv3 or later
*/

package main

import "encoding/json"

// ProgramData is one synth preset. Unknown keys in stored JSON are
// ignored and missing keys keep their defaults, so presets written by
// newer builds still load.
//
// When adding a parameter: add the field with its default, then extend
// CaptureFromVoices and ApplyToVoices.
type ProgramData struct {
	// Oscillator
	WaveformShape float32 `json:"waveformShape"`

	// Filter
	BaseCutoff float32 `json:"baseCutoff"`
	FilterQ    float32 `json:"filterQ"`
	FilterMode int     `json:"filterMode"` // 0..4 = LP/HP/BP/Notch/AP

	// Filter envelope
	FilterEnvAmount  float32 `json:"filterEnvAmount"`
	FilterEnvAttack  float32 `json:"filterEnvAttack"`
	FilterEnvDecay   float32 `json:"filterEnvDecay"`
	FilterEnvSustain float32 `json:"filterEnvSustain"`
	FilterEnvRelease float32 `json:"filterEnvRelease"`
}

// DefaultProgram returns the built-in preset values.
func DefaultProgram() ProgramData {
	return ProgramData{
		WaveformShape:    0.0,
		BaseCutoff:       1000.0,
		FilterQ:          0.707,
		FilterMode:       int(FILTER_LOWPASS),
		FilterEnvAmount:  0.5,
		FilterEnvAttack:  0.005,
		FilterEnvDecay:   0.2,
		FilterEnvSustain: 0.3,
		FilterEnvRelease: 0.1,
	}
}

// CaptureFromVoices snapshots the current settings from the first voice
// in the pool. Program parameters are broadcast, so any voice holds the
// authoritative values.
func (p *ProgramData) CaptureFromVoices(alloc *VoiceAllocator) {
	captured := false
	alloc.ForEach(func(voice Voice) {
		if captured {
			return
		}
		ws, ok := voice.(*WavetableVoice)
		if !ok {
			return
		}
		p.WaveformShape = ws.Oscillator().Shape()
		p.BaseCutoff = ws.BaseCutoff()
		p.FilterQ = ws.Filter().Q()
		p.FilterMode = int(ws.Filter().Mode())
		p.FilterEnvAmount = ws.FilterEnvAmount()
		p.FilterEnvAttack = ws.FilterEnvelope().AttackTime()
		p.FilterEnvDecay = ws.FilterEnvelope().DecayTime()
		p.FilterEnvSustain = ws.FilterEnvelope().SustainLevel()
		p.FilterEnvRelease = ws.FilterEnvelope().ReleaseTime()
		captured = true
	})
}

// ApplyToVoices pushes the preset onto every voice in the pool.
func (p ProgramData) ApplyToVoices(alloc *VoiceAllocator) {
	mode := FilterMode(p.FilterMode)
	if mode < FILTER_LOWPASS || mode >= FILTER_MODE_COUNT {
		mode = FILTER_LOWPASS
	}
	alloc.ForEach(func(voice Voice) {
		ws, ok := voice.(*WavetableVoice)
		if !ok {
			return
		}
		ws.SetTimbre(p.WaveformShape)
		ws.SetBaseCutoff(p.BaseCutoff)
		ws.Filter().SetQ(p.FilterQ)
		ws.Filter().SetMode(mode)
		ws.SetFilterEnvAmount(p.FilterEnvAmount)
		ws.FilterEnvelope().SetAttackTime(p.FilterEnvAttack)
		ws.FilterEnvelope().SetDecayTime(p.FilterEnvDecay)
		ws.FilterEnvelope().SetSustainLevel(p.FilterEnvSustain)
		ws.FilterEnvelope().SetReleaseTime(p.FilterEnvRelease)
	})
}

// MarshalPretty renders the preset as indented JSON for preset files and
// the clipboard.
func (p ProgramData) MarshalPretty() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// UnmarshalProgram parses preset JSON. Missing keys keep the defaults,
// extra keys are ignored.
func UnmarshalProgram(data []byte) (ProgramData, error) {
	p := DefaultProgram()
	if err := json.Unmarshal(data, &p); err != nil {
		return DefaultProgram(), err
	}
	return p, nil
}

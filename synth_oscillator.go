// synth_oscillator.go - Morphable wavetable oscillator

/*
░█▀█░█▀▄░█▀▀░█▀▀░█▀▀░█▀▀░█▀█░█▀▀░█▀▀
░█▀▀░█▀▄░█▀▀░▀▀█░▀▀█░█▀▀░█░█░█░░░█▀▀
░▀░░░▀░▀░▀▀▀░▀▀▀░▀▀▀░▀▀▀░▀░▀░▀▀▀░▀▀▀

Pressence - a polyphonic subtractive MIDI synthesizer
https://github.com/pressence/pressence
License: GPLv3 or later
*/

package main

import "math"

const WAVETABLE_SIZE = 256

// WavetableOscillator scans a precomputed 256-entry table with a phase
// accumulator in [0,1). The table morphs between sawtooth, triangle and
// square and is regenerated on timbre changes, never per sample, so the
// hot path is one wrap, one table read and one linear interpolation.
type WavetableOscillator struct {
	wavetable  [WAVETABLE_SIZE]float32
	phase      float32
	shape      float32
	sampleRate float32
}

func NewWavetableOscillator(sampleRate float32) *WavetableOscillator {
	osc := &WavetableOscillator{sampleRate: sampleRate}
	osc.UpdateWavetable(0.0) // Start with sawtooth
	return osc
}

// UpdateWavetable regenerates the table for the given morph parameter:
// 0.0 = sawtooth, 0.5 = triangle, 1.0 = square. Values outside [0,1]
// are clamped.
func (osc *WavetableOscillator) UpdateWavetable(shape float32) {
	if shape < 0.0 {
		shape = 0.0
	}
	if shape > 1.0 {
		shape = 1.0
	}
	osc.shape = shape

	for i := 0; i < WAVETABLE_SIZE; i++ {
		t := float32(i) / WAVETABLE_SIZE

		saw := 2.0*t - 1.0
		var triangle float32
		if t < 0.5 {
			triangle = 4.0*t - 1.0
		} else {
			triangle = 3.0 - 4.0*t
		}
		var square float32 = 1.0
		if t >= 0.5 {
			square = -1.0
		}

		var sample float32
		if shape < 0.5 {
			blend := shape * 2.0
			sample = saw*(1.0-blend) + triangle*blend
		} else {
			blend := (shape - 0.5) * 2.0
			sample = triangle*(1.0-blend) + square*blend
		}
		osc.wavetable[i] = sample
	}
}

// NextSample produces one sample at the given frequency and advances the
// phase accumulator.
func (osc *WavetableOscillator) NextSample(frequency float32) float32 {
	tablePos := osc.phase * WAVETABLE_SIZE
	index0 := int(tablePos) % WAVETABLE_SIZE
	index1 := (index0 + 1) % WAVETABLE_SIZE

	frac := tablePos - float32(math.Floor(float64(tablePos)))
	sample := osc.wavetable[index0]*(1.0-frac) + osc.wavetable[index1]*frac

	osc.phase += frequency / osc.sampleRate
	if osc.phase >= 1.0 {
		osc.phase -= 1.0
	}

	return sample
}

// Reset zeroes the phase. Called on note trigger.
func (osc *WavetableOscillator) Reset() {
	osc.phase = 0.0
}

func (osc *WavetableOscillator) Shape() float32 {
	return osc.shape
}

func (osc *WavetableOscillator) Phase() float32 {
	return osc.phase
}

func (osc *WavetableOscillator) SetPhase(phase float32) {
	for phase >= 1.0 {
		phase -= 1.0
	}
	for phase < 0.0 {
		phase += 1.0
	}
	osc.phase = phase
}

// synth_voice.go - Wavetable synth voice: oscillator -> filter -> envelope

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

const DEFAULT_PITCH_BEND_RANGE = 2.0 // semitones

// The filter envelope pushes the cutoff upward only, by up to a factor of
// ten above the base cutoff (1 + env*amount*9). The factor is deliberate:
// it gives exponential-feeling sweep headroom without ever closing the
// filter below its base setting.
const FILTER_ENV_CUTOFF_FACTOR = 9.0

// Voice is a monophonic synthesis unit driven by the MIDI layer. The
// allocator owns a fixed pool of these; everything here is called from the
// audio render thread only.
type Voice interface {
	Trigger(frequencyHz, volume float32)
	Release()
	SetFrequency(frequencyHz float32)
	SetVolume(volume float32)
	SetPitchBend(amount float32)
	SetPitchBendRange(semitones float32)
	IsActive() bool
	NextSample() float32
}

// WavetableVoice composes a wavetable oscillator, a per-voice biquad, an
// amplitude envelope and a filter envelope into one playable unit. All
// parameters are plain fields; the only indirection per sample is the
// Voice interface call from the mix loop.
type WavetableVoice struct {
	sampleRate float32

	oscillator  *WavetableOscillator
	filter      *BiquadFilter
	ampEnvelope *AdsrEnvelope
	filterEnv   *AdsrEnvelope

	baseFrequency   float32
	volume          float32
	pitchBend       float32 // [-1, +1]
	pitchBendRange  float32 // semitones
	baseCutoff      float32
	filterEnvAmount float32 // [0, 1]
}

func NewWavetableVoice(sampleRate float32) *WavetableVoice {
	v := &WavetableVoice{
		sampleRate:      sampleRate,
		oscillator:      NewWavetableOscillator(sampleRate),
		filter:          NewBiquadFilter(sampleRate),
		ampEnvelope:     NewAdsrEnvelope(sampleRate),
		filterEnv:       NewAdsrEnvelope(sampleRate),
		baseFrequency:   440.0,
		volume:          1.0,
		pitchBendRange:  DEFAULT_PITCH_BEND_RANGE,
		baseCutoff:      1000.0,
		filterEnvAmount: 0.5,
	}
	v.filter.SetMode(FILTER_LOWPASS)
	v.filter.SetQ(0.707)
	v.filterEnv.SetParameters(0.005, 0.2, 0.3, 0.1)
	return v
}

// Trigger starts a note: oscillator phase and filter delay line are
// cleared so the attack is free of state left over from the previous
// note, then both envelopes hard-restart.
func (v *WavetableVoice) Trigger(frequencyHz, volume float32) {
	v.baseFrequency = frequencyHz
	v.volume = volume
	v.oscillator.Reset()
	v.filter.Reset()
	v.ampEnvelope.Trigger()
	v.filterEnv.Trigger()
}

func (v *WavetableVoice) Release() {
	v.ampEnvelope.Release()
	v.filterEnv.Release()
}

func (v *WavetableVoice) SetFrequency(frequencyHz float32) {
	v.baseFrequency = frequencyHz
}

func (v *WavetableVoice) SetVolume(volume float32) {
	v.volume = volume
}

// SetTimbre regenerates the oscillator wavetable. Bounded 256-entry loop,
// safe to call from the render thread.
func (v *WavetableVoice) SetTimbre(timbre float32) {
	v.oscillator.UpdateWavetable(timbre)
}

func (v *WavetableVoice) SetPitchBend(amount float32) {
	if amount < -1.0 {
		amount = -1.0
	}
	if amount > 1.0 {
		amount = 1.0
	}
	v.pitchBend = amount
}

func (v *WavetableVoice) SetPitchBendRange(semitones float32) {
	v.pitchBendRange = semitones
}

func (v *WavetableVoice) PitchBend() float32      { return v.pitchBend }
func (v *WavetableVoice) PitchBendRange() float32 { return v.pitchBendRange }
func (v *WavetableVoice) BaseFrequency() float32  { return v.baseFrequency }
func (v *WavetableVoice) Volume() float32         { return v.volume }

func (v *WavetableVoice) SetBaseCutoff(cutoffHz float32) {
	v.baseCutoff = cutoffHz
}

func (v *WavetableVoice) BaseCutoff() float32 {
	return v.baseCutoff
}

func (v *WavetableVoice) SetFilterEnvAmount(amount float32) {
	v.filterEnvAmount = clamp01(amount)
}

func (v *WavetableVoice) FilterEnvAmount() float32 {
	return v.filterEnvAmount
}

func (v *WavetableVoice) Oscillator() *WavetableOscillator { return v.oscillator }
func (v *WavetableVoice) Filter() *BiquadFilter            { return v.filter }
func (v *WavetableVoice) AmpEnvelope() *AdsrEnvelope       { return v.ampEnvelope }
func (v *WavetableVoice) FilterEnvelope() *AdsrEnvelope    { return v.filterEnv }

func (v *WavetableVoice) IsActive() bool {
	return v.ampEnvelope.IsActive()
}

// NextSample renders one sample of the voice. Classic subtractive chain:
// oscillator -> filter (cutoff modulated by the filter envelope) ->
// amplitude envelope.
func (v *WavetableVoice) NextSample() float32 {
	if !v.ampEnvelope.IsActive() {
		return 0.0
	}

	semitoneShift := v.pitchBend * v.pitchBendRange
	frequency := v.baseFrequency * float32(math.Pow(2.0, float64(semitoneShift)/12.0))

	sample := v.oscillator.NextSample(frequency)

	// The filter envelope writes the cutoff every sample while it moves;
	// the dirty-flag check inside ProcessSample keeps the steady-state
	// cost at one comparison.
	filterEnvLevel := v.filterEnv.NextSample()
	modulatedCutoff := v.baseCutoff * (1.0 + filterEnvLevel*v.filterEnvAmount*FILTER_ENV_CUTOFF_FACTOR)
	v.filter.SetCutoff(modulatedCutoff)
	sample = v.filter.ProcessSample(sample)

	envelopeLevel := v.ampEnvelope.NextSample()
	return sample * envelopeLevel * v.volume
}

// synth_filter_test.go - Biquad filter test suite

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
	"testing"
)

func TestFilter_LowpassPassesDC(t *testing.T) {
	f := NewBiquadFilter(44100)
	f.SetMode(FILTER_LOWPASS)
	f.SetCutoff(1000)
	f.SetQ(0.707)

	var out float32
	for i := 0; i < 44100; i++ {
		out = f.ProcessSample(1.0)
	}
	if math.Abs(float64(out)-1.0) > 0.01 {
		t.Errorf("lowpass DC gain = %v, want ~1.0", out)
	}
}

func TestFilter_HighpassBlocksDC(t *testing.T) {
	f := NewBiquadFilter(44100)
	f.SetMode(FILTER_HIGHPASS)
	f.SetCutoff(1000)

	var out float32
	for i := 0; i < 44100; i++ {
		out = f.ProcessSample(1.0)
	}
	if math.Abs(float64(out)) > 0.01 {
		t.Errorf("highpass DC output = %v, want ~0", out)
	}
}

func TestFilter_NotchAttenuatesCenterFrequency(t *testing.T) {
	const sampleRate = 44100
	const freq = 1000.0

	f := NewBiquadFilter(sampleRate)
	f.SetMode(FILTER_NOTCH)
	f.SetCutoff(freq)
	f.SetQ(2.0)

	var inEnergy, outEnergy float64
	for i := 0; i < sampleRate; i++ {
		in := float32(math.Sin(2 * math.Pi * freq * float64(i) / sampleRate))
		out := f.ProcessSample(in)
		// Skip the settling transient.
		if i > sampleRate/10 {
			inEnergy += float64(in * in)
			outEnergy += float64(out * out)
		}
	}
	if outEnergy > inEnergy*0.01 {
		t.Errorf("notch leaves %.4f of the center-frequency energy, want < 1%%",
			outEnergy/inEnergy)
	}
}

func TestFilter_ParameterClamping(t *testing.T) {
	f := NewBiquadFilter(44100)

	f.SetCutoff(5.0)
	if f.Cutoff() != MIN_FILTER_CUTOFF_HZ {
		t.Errorf("cutoff = %v after SetCutoff(5), want %v", f.Cutoff(), MIN_FILTER_CUTOFF_HZ)
	}

	f.SetCutoff(1e9)
	wantMax := float32(44100.0/2.0) * 0.99
	if f.Cutoff() != wantMax {
		t.Errorf("cutoff = %v after SetCutoff(1e9), want %v", f.Cutoff(), wantMax)
	}

	f.SetQ(0.0)
	if f.Q() != MIN_FILTER_Q {
		t.Errorf("Q = %v after SetQ(0), want %v", f.Q(), MIN_FILTER_Q)
	}
	f.SetQ(100.0)
	if f.Q() != MAX_FILTER_Q {
		t.Errorf("Q = %v after SetQ(100), want %v", f.Q(), MAX_FILTER_Q)
	}
}

func TestFilter_FiniteOutputAcrossModes(t *testing.T) {
	modes := []FilterMode{FILTER_LOWPASS, FILTER_HIGHPASS, FILTER_BANDPASS, FILTER_NOTCH, FILTER_ALLPASS}
	cutoffs := []float32{20, 100, 1000, 10000, 21000}
	qs := []float32{0.1, 0.707, 5, 20}

	for _, mode := range modes {
		for _, cutoff := range cutoffs {
			for _, q := range qs {
				f := NewBiquadFilter(44100)
				f.SetMode(mode)
				f.SetCutoff(cutoff)
				f.SetQ(q)

				// Deterministic harsh input: alternating full-scale.
				x := float32(1.0)
				for i := 0; i < 4096; i++ {
					out := f.ProcessSample(x)
					x = -x
					if math.IsNaN(float64(out)) || math.IsInf(float64(out), 0) {
						t.Fatalf("mode %v cutoff %v Q %v: non-finite output %v at sample %d",
							mode, cutoff, q, out, i)
					}
				}
			}
		}
	}
}

func TestFilter_ResetClearsDelayLine(t *testing.T) {
	f := NewBiquadFilter(44100)
	f.SetMode(FILTER_LOWPASS)
	f.SetCutoff(500)

	for i := 0; i < 100; i++ {
		f.ProcessSample(1.0)
	}
	f.Reset()

	// After a reset the first output is exactly b0*x, as if freshly built.
	fresh := NewBiquadFilter(44100)
	fresh.SetMode(FILTER_LOWPASS)
	fresh.SetCutoff(500)

	got := f.ProcessSample(0.5)
	want := fresh.ProcessSample(0.5)
	if got != want {
		t.Errorf("first output after Reset = %v, fresh filter = %v", got, want)
	}
}

func TestFilter_LazyRecomputationOnlyWhenDirty(t *testing.T) {
	f := NewBiquadFilter(44100)
	f.ProcessSample(0.0)
	if f.coeffsDirty {
		t.Fatal("coefficients still dirty after ProcessSample")
	}

	// Writing the same value must not dirty the coefficients.
	f.SetCutoff(f.Cutoff())
	f.SetQ(f.Q())
	f.SetMode(f.Mode())
	if f.coeffsDirty {
		t.Error("rewriting identical parameters marked coefficients dirty")
	}

	f.SetCutoff(2000)
	if !f.coeffsDirty {
		t.Error("cutoff change did not mark coefficients dirty")
	}
	f.ProcessSample(0.0)
	if f.coeffsDirty {
		t.Error("ProcessSample did not clear the dirty flag")
	}
}

func TestFilter_NextModeCycles(t *testing.T) {
	mode := FILTER_LOWPASS
	seen := map[FilterMode]bool{mode: true}
	for i := 0; i < int(FILTER_MODE_COUNT)-1; i++ {
		mode = NextFilterMode(mode)
		if seen[mode] {
			t.Fatalf("mode %v repeated before the cycle completed", mode)
		}
		seen[mode] = true
	}
	if next := NextFilterMode(mode); next != FILTER_LOWPASS {
		t.Errorf("cycle does not return to lowpass, got %v", next)
	}
}

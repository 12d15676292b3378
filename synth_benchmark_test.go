// synth_benchmark_test.go - Hot path benchmarks

/*
░█▀█░█▀▄░█▀▀░█▀▀░█▀▀░█▀▀░█▀█░█▀▀░█▀▀
░█▀▀░█▀▄░█▀▀░▀▀█░▀▀█░█▀▀░█░█░█░░░█▀▀
░▀░░░▀░▀░▀▀▀░▀▀▀░▀▀▀░▀▀▀░▀░▀░▀▀▀░▀▀▀

Pressence - a polyphonic subtractive MIDI synthesizer
https://github.com/pressence/pressence
License: GPLv3 or later
*/

package main

import "testing"

func BenchmarkOscillatorNextSample(b *testing.B) {
	osc := NewWavetableOscillator(44100)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		osc.NextSample(440)
	}
}

func BenchmarkFilterProcessSample(b *testing.B) {
	f := NewBiquadFilter(44100)
	f.SetCutoff(2000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.ProcessSample(0.5)
	}
}

func BenchmarkFilterProcessSampleWithCutoffSweep(b *testing.B) {
	// Worst case: the cutoff moves every sample, like the filter
	// envelope does, forcing a coefficient recompute per call.
	f := NewBiquadFilter(44100)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.SetCutoff(1000 + float32(i%1000))
		f.ProcessSample(0.5)
	}
}

func BenchmarkVoiceNextSample(b *testing.B) {
	v := NewWavetableVoice(44100)
	v.Trigger(440, 1.0)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		v.NextSample()
	}
}

func BenchmarkEngineRenderBlock(b *testing.B) {
	e := newTestEngine(8)
	feedEngine(e,
		0x90, 60, 100,
		0x90, 64, 100,
		0x90, 67, 100,
		0x90, 71, 100)

	buf := make([]float32, 128*2)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.RenderAudio(buf, 128)
	}
}

func BenchmarkDecoderProcess(b *testing.B) {
	d, _, _ := newStubDecoder(8, 0)
	stream := []uint8{0x90, 60, 100, 0x80, 60, 0, 0xE0, 0, 64, 0xB0, 74, 90}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.Process(stream[i%len(stream)])
	}
}

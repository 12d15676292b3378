// audio_backend_wav.go - Offline render of the engine output to a WAV file

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
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WavRenderer drives the engine offline and writes 16-bit PCM WAV. Not a
// realtime sink: it renders as fast as the CPU allows, block by block, so
// a MIDI byte file plus a duration produces a reproducible bounce.
type WavRenderer struct {
	engine *Engine
	path   string
}

func NewWavRenderer(engine *Engine, path string) *WavRenderer {
	return &WavRenderer{engine: engine, path: path}
}

// Render writes seconds of engine output. Pending MIDI is drained at
// block boundaries exactly as in the realtime path.
func (r *WavRenderer) Render(seconds float64) error {
	if seconds <= 0 {
		return fmt.Errorf("render duration must be positive, got %g", seconds)
	}

	f, err := os.Create(r.path)
	if err != nil {
		return fmt.Errorf("render to %s: %w", r.path, err)
	}
	defer f.Close()

	sampleRate := r.engine.SampleRate()
	channels := r.engine.Channels()
	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)

	blockFrames := r.engine.BlockFrames()
	floatBuf := make([]float32, blockFrames*channels)
	intBuf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           make([]int, blockFrames*channels),
		SourceBitDepth: 16,
	}

	totalFrames := int(seconds * float64(sampleRate))
	for rendered := 0; rendered < totalFrames; {
		n := totalFrames - rendered
		if n > blockFrames {
			n = blockFrames
		}

		r.engine.RenderAudio(floatBuf[:n*channels], n)

		intBuf.Data = intBuf.Data[:n*channels]
		for i := 0; i < n*channels; i++ {
			intBuf.Data[i] = floatSampleToInt16(floatBuf[i])
		}
		if err := enc.Write(intBuf); err != nil {
			return fmt.Errorf("render to %s: %w", r.path, err)
		}
		rendered += n
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("render to %s: %w", r.path, err)
	}
	return nil
}

// floatSampleToInt16 converts a [-1,1] sample to int16 range, clipping
// out-of-range input.
func floatSampleToInt16(s float32) int {
	if s > 1.0 {
		s = 1.0
	}
	if s < -1.0 {
		s = -1.0
	}
	return int(s * 32767.0)
}

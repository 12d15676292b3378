//go:build !headless

// audio_backend_oto.go - OTO v3 audio output implementation

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
	"sync"
	"unsafe"

	"github.com/ebitengine/oto/v3"
)

func init() {
	compiledFeatures = append(compiledFeatures, "audio:oto")
}

// OtoSink drives the engine in the pull model: oto's player reads from
// this sink, each Read drains pending MIDI and renders one span of
// interleaved stereo frames. The sample buffer is pre-allocated so the
// audio callback stays heap-free.
type OtoSink struct {
	ctx       *oto.Context
	player    *oto.Player
	engine    *Engine
	sampleBuf []float32
	started   bool
	mutex     sync.Mutex // setup/control only, never the Read path
}

func NewOtoSink(engine *Engine) (*OtoSink, error) {
	op := &oto.NewContextOptions{
		SampleRate:   engine.SampleRate(),
		ChannelCount: engine.Channels(),
		Format:       oto.FormatFloat32LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	sink := &OtoSink{
		ctx:    ctx,
		engine: engine,
		// Pre-allocated for typical oto request sizes (4096 bytes = 512
		// stereo float32 frames); grows once if oto asks for more.
		sampleBuf: make([]float32, 4096),
	}
	sink.player = ctx.NewPlayer(sink)
	return sink, nil
}

func (s *OtoSink) Read(p []byte) (int, error) {
	numSamples := len(p) / 4
	numFrames := numSamples / s.engine.Channels()
	if numFrames == 0 {
		return 0, nil
	}

	renderSamples := numFrames * s.engine.Channels()
	if len(s.sampleBuf) < renderSamples {
		s.sampleBuf = make([]float32, renderSamples)
	}
	samples := s.sampleBuf[:renderSamples]

	s.engine.RenderAudio(samples, numFrames)

	copy(p, (*[1 << 30]byte)(unsafe.Pointer(&samples[0]))[:renderSamples*4])
	return renderSamples * 4, nil
}

func (s *OtoSink) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.started && s.player != nil {
		s.player.Play()
		s.started = true
	}
	return nil
}

func (s *OtoSink) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.started && s.player != nil {
		s.player.Pause()
		s.started = false
	}
}

func (s *OtoSink) Close() {
	s.Stop()
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.player != nil {
		s.player.Close()
		s.player = nil
	}
}

func (s *OtoSink) IsStarted() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.started
}

// audio_sink.go - Audio output backend selection

/*
░█▀█░█▀▄░█▀▀░█▀▀░█▀▀░█▀▀░█▀█░█▀▀░█▀▀
░█▀▀░█▀▄░█▀▀░▀▀█░▀▀█░█▀▀░█░█░█░░░█▀▀
░▀░░░▀░▀░▀▀▀░▀▀▀░▀▀▀░▀▀▀░▀░▀░▀▀▀░▀▀▀

Pressence - a polyphonic subtractive MIDI synthesizer
https://github.com/pressence/pressence
License: GPLv3 or later
*/

package main

import "fmt"

const (
	AUDIO_BACKEND_OTO = iota
	AUDIO_BACKEND_ALSA
	AUDIO_BACKEND_HEADLESS
)

// AudioSink is a realtime audio output driving the engine. Pull backends
// (oto) call Engine.RenderAudio from their own callback; push backends
// (ALSA) run a render loop goroutine. Either way the engine sees exactly
// one rendering thread.
type AudioSink interface {
	Start() error
	Stop()
	Close()
	IsStarted() bool
}

func NewAudioSink(backend int, engine *Engine) (AudioSink, error) {
	switch backend {
	case AUDIO_BACKEND_OTO:
		return NewOtoSink(engine)
	case AUDIO_BACKEND_ALSA:
		return NewAlsaSink(engine)
	case AUDIO_BACKEND_HEADLESS:
		return NewHeadlessSink(engine), nil
	}
	return nil, fmt.Errorf("unknown audio backend %d", backend)
}

// HeadlessSink renders nothing and keeps no clock. Used by tests and by
// the offline WAV renderer, which drives the engine itself.
type HeadlessSink struct {
	engine  *Engine
	started bool
}

func NewHeadlessSink(engine *Engine) *HeadlessSink {
	return &HeadlessSink{engine: engine}
}

func (h *HeadlessSink) Start() error {
	h.started = true
	return nil
}

func (h *HeadlessSink) Stop() {
	h.started = false
}

func (h *HeadlessSink) Close() {
	h.started = false
}

func (h *HeadlessSink) IsStarted() bool {
	return h.started
}

//go:build headless

// audio_backend_headless.go - Stubs for builds without audio hardware

package main

import "fmt"

func init() {
	compiledFeatures = append(compiledFeatures, "audio:headless")
}

type OtoSink struct {
	engine  *Engine
	started bool
}

func NewOtoSink(engine *Engine) (*OtoSink, error) {
	return &OtoSink{engine: engine}, nil
}

func (s *OtoSink) Start() error {
	s.started = true
	return nil
}

func (s *OtoSink) Stop() {
	s.started = false
}

func (s *OtoSink) Close() {
	s.started = false
}

func (s *OtoSink) IsStarted() bool {
	return s.started
}

func NewAlsaSink(engine *Engine) (AudioSink, error) {
	return nil, fmt.Errorf("ALSA backend not compiled in")
}

//go:build !linux && !headless

// audio_backend_stub.go - ALSA stub for non-Linux builds

package main

import "fmt"

func NewAlsaSink(engine *Engine) (AudioSink, error) {
	return nil, fmt.Errorf("ALSA backend is Linux-only")
}

//go:build linux && !headless

// audio_backend_alsa.go - ALSA PCM audio output implementation

/*
░█▀█░█▀▄░█▀▀░█▀▀░█▀▀░█▀▀░█▀█░█▀▀░█▀▀
░█▀▀░█▀▄░█▀▀░▀▀█░▀▀█░█▀▀░█░█░█░░░█▀▀
░▀░░░▀░▀░▀▀▀░▀▀▀░▀▀▀░▀▀▀░▀░▀░▀▀▀░▀▀▀

Pressence - a polyphonic subtractive MIDI synthesizer
https://github.com/pressence/pressence
License: GPLv3 or later
*/

package main

/*
#cgo LDFLAGS: -lasound
#include <alsa/asoundlib.h>
#include <stdlib.h>

static snd_pcm_t* openPCM(const char* device, int* err) {
    snd_pcm_t* handle;
    *err = snd_pcm_open(&handle, device, SND_PCM_STREAM_PLAYBACK, 0);
    return handle;
}

static int setupPCM(snd_pcm_t* handle, unsigned int rate, unsigned int channels, snd_pcm_uframes_t period) {
    snd_pcm_hw_params_t* params;
    int err;

    snd_pcm_hw_params_alloca(&params);
    err = snd_pcm_hw_params_any(handle, params);
    if (err < 0) return err;

    err = snd_pcm_hw_params_set_access(handle, params, SND_PCM_ACCESS_RW_INTERLEAVED);
    if (err < 0) return err;

    err = snd_pcm_hw_params_set_format(handle, params, SND_PCM_FORMAT_FLOAT_LE);
    if (err < 0) return err;

    err = snd_pcm_hw_params_set_channels(handle, params, channels);
    if (err < 0) return err;

    err = snd_pcm_hw_params_set_rate(handle, params, rate, 0);
    if (err < 0) return err;

    err = snd_pcm_hw_params_set_period_size_near(handle, params, &period, 0);
    if (err < 0) return err;

    err = snd_pcm_hw_params(handle, params);
    if (err < 0) return err;

    return snd_pcm_prepare(handle);
}

static int writePCM(snd_pcm_t* handle, float* buffer, int frames) {
    return snd_pcm_writei(handle, buffer, frames);
}

static void closePCM(snd_pcm_t* handle) {
    if (handle != NULL) {
        snd_pcm_drain(handle);
        snd_pcm_close(handle);
    }
}
*/
import "C"
import (
	"fmt"
	"sync"
	"unsafe"
)

func init() {
	compiledFeatures = append(compiledFeatures, "audio:alsa")
}

// AlsaSink runs the push model: a render goroutine fills a block from the
// engine and writes it to the PCM device, recovering from underruns with
// snd_pcm_prepare.
type AlsaSink struct {
	handle  *C.snd_pcm_t
	engine  *Engine
	samples []float32
	started bool
	done    chan struct{}
	mutex   sync.Mutex
}

func NewAlsaSink(engine *Engine) (*AlsaSink, error) {
	var cerr C.int
	device := C.CString("default")
	defer C.free(unsafe.Pointer(device))

	handle := C.openPCM(device, &cerr)
	if cerr < 0 {
		return nil, fmt.Errorf("failed to open PCM device: %s", C.GoString(C.snd_strerror(cerr)))
	}

	if cerr = C.setupPCM(handle, C.uint(engine.SampleRate()), C.uint(engine.Channels()),
		C.snd_pcm_uframes_t(engine.BlockFrames())); cerr < 0 {
		C.closePCM(handle)
		return nil, fmt.Errorf("failed to setup PCM: %s", C.GoString(C.snd_strerror(cerr)))
	}

	return &AlsaSink{
		handle:  handle,
		engine:  engine,
		samples: make([]float32, engine.BlockFrames()*engine.Channels()),
	}, nil
}

func (s *AlsaSink) renderLoop() {
	frames := s.engine.BlockFrames()
	for {
		select {
		case <-s.done:
			return
		default:
		}

		s.engine.RenderAudio(s.samples, frames)

		written := C.writePCM(s.handle, (*C.float)(unsafe.Pointer(&s.samples[0])), C.int(frames))
		if written < 0 {
			if written == -C.EPIPE {
				s.engine.ReportUnderrun()
				C.snd_pcm_prepare(s.handle)
				written = C.writePCM(s.handle, (*C.float)(unsafe.Pointer(&s.samples[0])), C.int(frames))
			}
			if written < 0 {
				fmt.Printf("ALSA write failed: %s\n", C.GoString(C.snd_strerror(C.int(written))))
				return
			}
		}
	}
}

func (s *AlsaSink) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.started {
		s.done = make(chan struct{})
		s.started = true
		go s.renderLoop()
	}
	return nil
}

func (s *AlsaSink) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.started {
		close(s.done)
		s.started = false
	}
}

func (s *AlsaSink) Close() {
	s.Stop()
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.handle != nil {
		C.closePCM(s.handle)
		s.handle = nil
	}
}

func (s *AlsaSink) IsStarted() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.started
}

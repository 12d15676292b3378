// telemetry.go - Non-blocking telemetry sinks and render-loop stats

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
	"encoding/json"
	"io"
	"sync"
)

// TelemetrySink receives periodic stats snapshots. Send must never block
// the producer: the render loop and the key scanner both emit telemetry
// and neither can afford to wait on a slow transport.
type TelemetrySink[T any] interface {
	Send(data T)
	Close()
}

// NoTelemetrySink drops everything. Null object so callers never need a
// nil check.
type NoTelemetrySink[T any] struct{}

func (NoTelemetrySink[T]) Send(T) {}
func (NoTelemetrySink[T]) Close() {}

// JSONTelemetrySink writes one JSON object per line to a writer. Sends go
// through a buffered channel drained by a writer goroutine; when the
// channel is full the snapshot is dropped.
type JSONTelemetrySink[T any] struct {
	ch   chan T
	done chan struct{}
	once sync.Once
}

func NewJSONTelemetrySink[T any](w io.Writer) *JSONTelemetrySink[T] {
	sink := &JSONTelemetrySink[T]{
		ch:   make(chan T, 64),
		done: make(chan struct{}),
	}
	go func() {
		enc := json.NewEncoder(w)
		for data := range sink.ch {
			// Encode errors are swallowed: telemetry must never take the
			// synth down.
			_ = enc.Encode(data)
		}
		close(sink.done)
	}()
	return sink
}

func (s *JSONTelemetrySink[T]) Send(data T) {
	select {
	case s.ch <- data:
	default:
	}
}

func (s *JSONTelemetrySink[T]) Close() {
	s.once.Do(func() {
		close(s.ch)
		<-s.done
	})
}

// AudioStats describes render-loop performance over a reporting window.
type AudioStats struct {
	Type           string `json:"type"`
	FrameCount     uint32 `json:"frameCount"`
	AvgRenderTime  uint32 `json:"avgRenderTime"` // microseconds
	MaxRenderTime  uint32 `json:"maxRenderTime"` // microseconds
	BufferDuration uint32 `json:"bufferDuration"`
	UnderrunCount  uint32 `json:"underrunCount"`
}

// audioStatsAccumulator aggregates per-block timings on the render side.
// Accumulation is plain field math; only Snapshot hands data out.
type audioStatsAccumulator struct {
	frameCount    uint32
	totalRenderUs uint64
	maxRenderUs   uint32
	blockCount    uint32
	underruns     uint32
}

func (acc *audioStatsAccumulator) addBlock(renderUs uint32, frames int) {
	acc.frameCount += uint32(frames)
	acc.totalRenderUs += uint64(renderUs)
	acc.blockCount++
	if renderUs > acc.maxRenderUs {
		acc.maxRenderUs = renderUs
	}
}

func (acc *audioStatsAccumulator) addUnderrun() {
	acc.underruns++
}

func (acc *audioStatsAccumulator) snapshot(bufferUs uint32) AudioStats {
	stats := AudioStats{
		Type:           "audio",
		FrameCount:     acc.frameCount,
		MaxRenderTime:  acc.maxRenderUs,
		BufferDuration: bufferUs,
		UnderrunCount:  acc.underruns,
	}
	if acc.blockCount > 0 {
		stats.AvgRenderTime = uint32(acc.totalRenderUs / uint64(acc.blockCount))
	}
	return stats
}

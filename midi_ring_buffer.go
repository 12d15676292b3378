// midi_ring_buffer.go - Single-producer single-consumer MIDI byte queue

/*
░█▀█░█▀▄░█▀▀░█▀▀░█▀▀░█▀▀░█▀█░█▀▀░█▀▀
░█▀▀░█▀▄░█▀▀░▀▀█░▀▀█░█▀▀░█░█░█░░░█▀▀
░▀░░░▀░▀░▀▀▀░▀▀▀░▀▀▀░▀▀▀░▀░▀░▀▀▀░▀▀▀

Pressence - a polyphonic subtractive MIDI synthesizer
https://github.com/pressence/pressence
License: GPLv3 or later
*/

package main

import "sync/atomic"

const MIDI_RING_SIZE = 1024 // must be a power of two

// MidiRingBuffer carries raw MIDI bytes from a producer task (scanner,
// MIDI listener, arpeggiator) to the audio thread. One producer, one
// consumer; the consumer side is wait-free, which is the only property
// the audio thread needs. A full ring drops the newest byte rather than
// blocking the producer.
type MidiRingBuffer struct {
	buf  [MIDI_RING_SIZE]byte
	head atomic.Uint64 // next write position (producer)
	tail atomic.Uint64 // next read position (consumer)
}

func NewMidiRingBuffer() *MidiRingBuffer {
	return &MidiRingBuffer{}
}

// Push appends one byte. Returns false if the ring is full and the byte
// was dropped.
func (r *MidiRingBuffer) Push(b byte) bool {
	head := r.head.Load()
	tail := r.tail.Load()
	if head-tail >= MIDI_RING_SIZE {
		return false
	}
	r.buf[head&(MIDI_RING_SIZE-1)] = b
	r.head.Store(head + 1)
	return true
}

// Pop removes one byte. ok is false when the ring is empty.
func (r *MidiRingBuffer) Pop() (b byte, ok bool) {
	tail := r.tail.Load()
	if tail == r.head.Load() {
		return 0, false
	}
	b = r.buf[tail&(MIDI_RING_SIZE-1)]
	r.tail.Store(tail + 1)
	return b, true
}

// Drain pops every pending byte into fn. Returns the number drained.
func (r *MidiRingBuffer) Drain(fn func(byte)) int {
	n := 0
	for {
		b, ok := r.Pop()
		if !ok {
			return n
		}
		fn(b)
		n++
	}
}

// Len reports the number of buffered bytes. Racy by nature; intended for
// stats and tests.
func (r *MidiRingBuffer) Len() int {
	return int(r.head.Load() - r.tail.Load())
}

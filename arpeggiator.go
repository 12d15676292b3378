// arpeggiator.go - Background arpeggio task feeding the MIDI ring

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
	"time"
)

// Default pattern: ascending C minor 7 arpeggio over two octaves.
var defaultArpPattern = []uint8{48, 51, 55, 58, 60, 63, 67, 70}

const (
	DEFAULT_ARP_NOTE_DURATION = 150 * time.Millisecond
	DEFAULT_ARP_GATE          = 0.8 // fraction of the step the note is held
	DEFAULT_ARP_VELOCITY      = 100
)

// Arpeggiator is a producer task that plays a fixed note pattern into an
// SPSC ring, exactly like a hardware scanner would: the audio thread only
// ever sees MIDI bytes. Used by the demo mode and the soak tests.
type Arpeggiator struct {
	ring     *MidiRingBuffer
	pattern  []uint8
	step     time.Duration
	velocity uint8

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func NewArpeggiator(ring *MidiRingBuffer) *Arpeggiator {
	return &Arpeggiator{
		ring:     ring,
		pattern:  defaultArpPattern,
		step:     DEFAULT_ARP_NOTE_DURATION,
		velocity: DEFAULT_ARP_VELOCITY,
		done:     make(chan struct{}),
	}
}

// SetPattern replaces the note sequence. Call before Start.
func (a *Arpeggiator) SetPattern(notes []uint8) {
	if len(notes) > 0 {
		a.pattern = notes
	}
}

// SetStep sets the per-note step duration. Call before Start.
func (a *Arpeggiator) SetStep(step time.Duration) {
	if step > 0 {
		a.step = step
	}
}

func (a *Arpeggiator) Start() {
	a.wg.Add(1)
	go a.run()
}

func (a *Arpeggiator) Stop() {
	a.once.Do(func() { close(a.done) })
	a.wg.Wait()
}

func (a *Arpeggiator) run() {
	defer a.wg.Done()

	gate := time.Duration(float64(a.step) * DEFAULT_ARP_GATE)
	index := 0
	for {
		note := a.pattern[index%len(a.pattern)]
		a.noteOn(note)

		select {
		case <-a.done:
			a.noteOff(note)
			return
		case <-time.After(gate):
		}
		a.noteOff(note)

		select {
		case <-a.done:
			return
		case <-time.After(a.step - gate):
		}
		index++
	}
}

func (a *Arpeggiator) noteOn(note uint8) {
	a.ring.Push(MIDI_NOTE_ON)
	a.ring.Push(note & 0x7F)
	a.ring.Push(a.velocity)
}

func (a *Arpeggiator) noteOff(note uint8) {
	a.ring.Push(MIDI_NOTE_OFF)
	a.ring.Push(note & 0x7F)
	a.ring.Push(0x00)
}

//go:build !headless

// keyboard_terminal.go - Raw-mode terminal stand-in for the key scanner

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
	"sync"
	"time"

	"golang.org/x/term"
)

// Piano layout on the home row, a = C4.
const terminalKeyMap = "awsedftgyhuj"

const (
	TERMINAL_SCAN_RATE_HZ     = 1000
	TERMINAL_KEY_HOLD         = 200 * time.Millisecond
	TERMINAL_BASELINE_READING = 1000
	TERMINAL_TOUCH_READING    = 1400
)

// terminalKeyScanner synthesizes capacitive-style readings from terminal
// key presses. Terminals deliver no key-up events, so a press reads as
// "touched" for a hold window and decays back to baseline, which the
// controller's hysteresis turns into note on/off pairs.
type terminalKeyScanner struct {
	mutex      sync.Mutex
	pressUntil []time.Time
	readings   []uint16
}

func newTerminalKeyScanner() *terminalKeyScanner {
	n := len(terminalKeyMap)
	return &terminalKeyScanner{
		pressUntil: make([]time.Time, n),
		readings:   make([]uint16, n),
	}
}

func (s *terminalKeyScanner) KeyCount() int {
	return len(s.readings)
}

func (s *terminalKeyScanner) ScanReadings() []uint16 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	now := time.Now()
	for i := range s.readings {
		if now.Before(s.pressUntil[i]) {
			s.readings[i] = TERMINAL_TOUCH_READING
		} else {
			s.readings[i] = TERMINAL_BASELINE_READING
		}
	}
	return s.readings
}

func (s *terminalKeyScanner) press(keyIndex int) {
	s.mutex.Lock()
	s.pressUntil[keyIndex] = time.Now().Add(TERMINAL_KEY_HOLD)
	s.mutex.Unlock()
}

// TerminalKeyboard turns the controlling terminal into a MIDI keyboard:
// stdin goes raw, key presses feed the simulated scanner, and the
// MidiKeyboardController converts scans into MIDI bytes pushed to an SPSC
// ring drained by the audio thread.
type TerminalKeyboard struct {
	*RingMidiInput
	scanner    *terminalKeyScanner
	controller *MidiKeyboardController
	restore    func()
	done       chan struct{}
	closeOnce  sync.Once
}

func NewTerminalKeyboard(telemetry TelemetrySink[KeyScanStats]) (*TerminalKeyboard, error) {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("terminal keyboard needs a TTY: %w", err)
	}

	ring := NewMidiRingBuffer()
	scanner := newTerminalKeyScanner()
	kb := &TerminalKeyboard{
		RingMidiInput: NewRingMidiInput(ring, "terminal keyboard"),
		scanner:       scanner,
		restore:       func() { _ = term.Restore(fd, oldState) },
		done:          make(chan struct{}),
	}
	kb.controller = NewMidiKeyboardController(scanner, func(b byte) { ring.Push(b) },
		telemetry, 60, 100)

	go kb.readLoop()
	go kb.scanLoop()

	return kb, nil
}

func (kb *TerminalKeyboard) readLoop() {
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil || n == 0 {
			return
		}
		c := buf[0]
		if c == 'q' || c == 0x03 { // q or Ctrl-C
			kb.Close()
			return
		}
		for i := 0; i < len(terminalKeyMap); i++ {
			if terminalKeyMap[i] == c {
				kb.scanner.press(i)
				break
			}
		}
	}
}

func (kb *TerminalKeyboard) scanLoop() {
	ticker := time.NewTicker(time.Second / TERMINAL_SCAN_RATE_HZ)
	defer ticker.Stop()
	for {
		select {
		case <-kb.done:
			return
		case <-ticker.C:
			kb.controller.ProcessScan()
		}
	}
}

func (kb *TerminalKeyboard) Controller() *MidiKeyboardController {
	return kb.controller
}

// Done is closed when the user quits the keyboard.
func (kb *TerminalKeyboard) Done() <-chan struct{} {
	return kb.done
}

func (kb *TerminalKeyboard) Close() error {
	kb.closeOnce.Do(func() {
		close(kb.done)
		kb.restore()
	})
	return nil
}

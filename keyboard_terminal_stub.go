//go:build headless

// keyboard_terminal_stub.go - Terminal keyboard stub for headless builds

package main

import "fmt"

type TerminalKeyboard struct {
	*RingMidiInput
}

func NewTerminalKeyboard(telemetry TelemetrySink[KeyScanStats]) (*TerminalKeyboard, error) {
	return nil, fmt.Errorf("terminal keyboard not compiled in")
}

func (kb *TerminalKeyboard) Done() <-chan struct{} {
	return nil
}

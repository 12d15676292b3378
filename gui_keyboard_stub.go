//go:build !gui || headless

// gui_keyboard_stub.go - Stub for builds without the GUI frontend

package main

import "fmt"

func RunKeyboardGUI(engine *Engine, ring *MidiRingBuffer) error {
	return fmt.Errorf("GUI frontend not compiled in (build with -tags gui)")
}

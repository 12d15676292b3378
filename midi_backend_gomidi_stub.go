//go:build headless

// midi_backend_gomidi_stub.go - gomidi stubs for headless builds

package main

import "fmt"

func ListGomidiPorts() []string {
	return nil
}

func NewGomidiIn(portName string) (MidiInput, error) {
	return nil, fmt.Errorf("rtmidi backend not compiled in")
}

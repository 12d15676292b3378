//go:build !linux || headless

// midi_backend_stub.go - ALSA MIDI stubs for non-Linux/headless builds

package main

import "fmt"

type MidiDeviceInfo struct {
	Name        string
	Description string
}

func ListMidiDevices() []MidiDeviceInfo {
	return nil
}

func NewAlsaMidiIn(deviceName string) (MidiInput, error) {
	return nil, fmt.Errorf("ALSA MIDI input not compiled in")
}

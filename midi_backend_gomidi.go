//go:build !headless

// midi_backend_gomidi.go - Portable MIDI input via gomidi/rtmidi

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
	"strings"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // register MIDI driver
)

func init() {
	compiledFeatures = append(compiledFeatures, "midi:rtmidi")
}

// GomidiIn listens on a MIDI port through the rtmidi driver and funnels
// the raw message bytes into an SPSC ring. The listener callback runs on
// the driver's thread; the audio thread drains the ring through Poll, so
// the §5 producer/consumer topology holds without locks on the consumer
// side.
type GomidiIn struct {
	ring *MidiRingBuffer
	port drivers.In
	stop func()
	name string
}

// ListGomidiPorts returns the names of available MIDI input ports.
func ListGomidiPorts() []string {
	ports := gomidi.GetInPorts()
	names := make([]string, 0, len(ports))
	for _, p := range ports {
		names = append(names, p.String())
	}
	return names
}

// NewGomidiIn opens the first port whose name contains portName
// (case-insensitive). Empty portName opens the first available port.
func NewGomidiIn(portName string) (*GomidiIn, error) {
	ports := gomidi.GetInPorts()
	if len(ports) == 0 {
		return nil, fmt.Errorf("no MIDI input ports found")
	}

	var port drivers.In
	if portName == "" {
		port = ports[0]
	} else {
		for _, p := range ports {
			if strings.Contains(strings.ToLower(p.String()), strings.ToLower(portName)) {
				port = p
				break
			}
		}
		if port == nil {
			return nil, fmt.Errorf("no MIDI input port matching %q", portName)
		}
	}

	in := &GomidiIn{
		ring: NewMidiRingBuffer(),
		port: port,
		name: port.String(),
	}

	stop, err := gomidi.ListenTo(port, func(msg gomidi.Message, timestampms int32) {
		for _, b := range msg.Bytes() {
			in.ring.Push(b)
		}
	}, gomidi.UseSysEx())
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", port.String(), err)
	}
	in.stop = stop

	return in, nil
}

func (g *GomidiIn) Poll(fn func(byte)) int {
	return g.ring.Drain(fn)
}

func (g *GomidiIn) Name() string {
	return g.name
}

func (g *GomidiIn) Close() error {
	if g.stop != nil {
		g.stop()
		g.stop = nil
	}
	return nil
}

// preset_clipboard.go - Copy/paste of the current preset

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

	"golang.design/x/clipboard"
)

// PresetClipboard holds one preset for copy/paste between programs
// (CC 103 copy, CC 104 paste). Capture and Apply run on the audio thread
// and only touch plain fields; the optional system-clipboard mirror is
// serviced by a background goroutine fed through a non-blocking channel,
// so the audio thread never marshals JSON or calls into the platform
// clipboard.
type PresetClipboard struct {
	program ProgramData
	hasData bool

	syncCh chan ProgramData
	done   chan struct{}
}

func NewPresetClipboard() *PresetClipboard {
	return &PresetClipboard{}
}

// StartSystemSync mirrors every copied preset to the system clipboard as
// JSON. Fails (and leaves the clipboard memory-only) on headless systems.
func (c *PresetClipboard) StartSystemSync() error {
	if err := clipboard.Init(); err != nil {
		return fmt.Errorf("system clipboard unavailable: %w", err)
	}
	c.syncCh = make(chan ProgramData, 4)
	c.done = make(chan struct{})
	go func() {
		for p := range c.syncCh {
			if data, err := p.MarshalPretty(); err == nil {
				clipboard.Write(clipboard.FmtText, data)
			}
		}
		close(c.done)
	}()
	return nil
}

func (c *PresetClipboard) StopSystemSync() {
	if c.syncCh != nil {
		close(c.syncCh)
		<-c.done
		c.syncCh = nil
	}
}

// Capture copies the allocator's current settings into the clipboard.
func (c *PresetClipboard) Capture(alloc *VoiceAllocator) {
	c.program.CaptureFromVoices(alloc)
	c.hasData = true
	if c.syncCh != nil {
		select {
		case c.syncCh <- c.program:
		default:
		}
	}
}

// Apply pushes the clipboard preset onto the voices. Returns false when
// the clipboard is empty.
func (c *PresetClipboard) Apply(alloc *VoiceAllocator) bool {
	if !c.hasData {
		return false
	}
	c.program.ApplyToVoices(alloc)
	return true
}

func (c *PresetClipboard) HasData() bool {
	return c.hasData
}

// Program returns the clipboard contents (zero value when empty).
func (c *PresetClipboard) Program() ProgramData {
	return c.program
}

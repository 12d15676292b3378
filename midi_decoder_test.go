// midi_decoder_test.go - MIDI stream decoder test suite

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
	"math"
	"testing"
)

func newStubDecoder(maxVoices int, listenChannel uint8) (*StreamDecoder, *VoiceAllocator, []*stubVoice) {
	alloc, voices := newStubAllocator(maxVoices)
	return NewStreamDecoder(alloc, listenChannel), alloc, voices
}

func feed(d *StreamDecoder, bytes ...uint8) {
	for _, b := range bytes {
		d.Process(b)
	}
}

func totalTriggers(voices []*stubVoice) int {
	n := 0
	for _, v := range voices {
		n += v.triggers
	}
	return n
}

func TestDecoder_NoteOnTriggersVoice(t *testing.T) {
	d, alloc, voices := newStubDecoder(8, 0)

	feed(d, 0x90, 60, 100)

	if totalTriggers(voices) != 1 {
		t.Fatalf("%d triggers, want 1", totalTriggers(voices))
	}
	v := alloc.FindAllocated(60).(*stubVoice)
	if math.Abs(float64(v.lastFreq)-261.626) > 0.01 {
		t.Errorf("note 60 frequency = %v, want ~261.626", v.lastFreq)
	}
	wantVol := float32(100) / 127.0
	if v.lastVolume != wantVol {
		t.Errorf("velocity 100 volume = %v, want %v", v.lastVolume, wantVol)
	}
}

func TestDecoder_NoteOffReleasesSameVoice(t *testing.T) {
	d, alloc, _ := newStubDecoder(8, 0)

	feed(d, 0x90, 60, 100)
	v := alloc.FindAllocated(60).(*stubVoice)
	feed(d, 0x80, 60, 0)

	if v.releases != 1 {
		t.Errorf("releases = %d, want 1", v.releases)
	}
}

func TestDecoder_NoteOnVelocityZeroIsNoteOff(t *testing.T) {
	d, alloc, voices := newStubDecoder(8, 0)

	feed(d, 0x90, 60, 100)
	v := alloc.FindAllocated(60).(*stubVoice)
	feed(d, 0x90, 60, 0)

	if v.releases != 1 {
		t.Errorf("velocity-0 NoteOn caused %d releases, want 1", v.releases)
	}
	if totalTriggers(voices) != 1 {
		t.Errorf("velocity-0 NoteOn re-triggered a voice")
	}
}

func TestDecoder_NoteOffForUnassignedNoteIsNoop(t *testing.T) {
	d, _, voices := newStubDecoder(8, 0)

	feed(d, 0x80, 60, 0)
	for _, v := range voices {
		if v.releases != 0 {
			t.Fatal("note-off on silent pool released a voice")
		}
	}
}

func TestDecoder_RunningStatus(t *testing.T) {
	d, alloc, voices := newStubDecoder(8, 0)

	// One status, two complete messages.
	feed(d, 0x90, 60, 100, 64, 100)

	if totalTriggers(voices) != 2 {
		t.Fatalf("%d triggers under running status, want 2", totalTriggers(voices))
	}
	if alloc.FindAllocated(60) == nil || alloc.FindAllocated(64) == nil {
		t.Error("running-status notes not both allocated")
	}
}

func TestDecoder_RealTimeByteMidMessage(t *testing.T) {
	d, alloc, voices := newStubDecoder(8, 0)

	// 0xF8 (clock) between the two data bytes must not corrupt anything.
	feed(d, 0x90, 60, 0xF8, 100)

	if totalTriggers(voices) != 1 {
		t.Fatalf("%d triggers, want 1", totalTriggers(voices))
	}
	v := alloc.FindAllocated(60).(*stubVoice)
	if v.lastVolume != float32(100)/127.0 {
		t.Errorf("volume = %v, want 100/127", v.lastVolume)
	}
}

func TestDecoder_WrongChannelIgnoredAndKillsRunningStatus(t *testing.T) {
	d, _, voices := newStubDecoder(8, 0)

	// Channel 1 while listening on 0: no allocation.
	feed(d, 0x91, 60, 100)
	if totalTriggers(voices) != 0 {
		t.Fatal("wrong-channel NoteOn triggered a voice")
	}

	// Establish running status, interrupt with a wrong-channel status,
	// then send bare data bytes: they must not produce events.
	feed(d, 0x90, 60, 100)
	feed(d, 0x91, 64, 100)
	feed(d, 67, 100)
	if totalTriggers(voices) != 1 {
		t.Errorf("%d triggers, want 1: data bytes after a foreign status were decoded", totalTriggers(voices))
	}
}

func TestDecoder_StatusInterruptsPartialMessage(t *testing.T) {
	d, _, voices := newStubDecoder(8, 0)

	// NoteOn is missing its velocity when NoteOff starts.
	feed(d, 0x90, 60, 0x80, 64, 0)

	if totalTriggers(voices) != 0 {
		t.Error("discarded partial NoteOn still triggered")
	}
}

func TestDecoder_DataBytesWithoutStatusIgnored(t *testing.T) {
	d, _, voices := newStubDecoder(8, 0)

	feed(d, 60, 100, 64, 100)
	if totalTriggers(voices) != 0 {
		t.Error("stray data bytes produced events")
	}
}

func TestDecoder_SysExToleratedAndClearsRunningStatus(t *testing.T) {
	d, _, voices := newStubDecoder(8, 0)

	feed(d, 0x90, 60, 100) // establish running status
	// SysEx payload bytes must be discarded, not parsed as note data.
	feed(d, 0xF0, 60, 100, 64, 100, 0xF7)
	if totalTriggers(voices) != 1 {
		t.Fatalf("%d triggers, want 1: SysEx payload was decoded", totalTriggers(voices))
	}

	// Running status is gone after SysEx: bare data bytes do nothing.
	feed(d, 67, 100)
	if totalTriggers(voices) != 1 {
		t.Error("running status survived SysEx")
	}

	// A fresh status works again.
	feed(d, 0x90, 67, 100)
	if totalTriggers(voices) != 2 {
		t.Error("decoder did not recover after SysEx")
	}
}

func TestDecoder_PitchBendBroadcast(t *testing.T) {
	tests := []struct {
		name string
		lsb  uint8
		msb  uint8
		want float32
	}{
		{"center is exactly zero", 0, 64, 0.0},
		{"minimum", 0, 0, -1.0},
		{"maximum", 127, 127, float32(16383-8192) / 8192.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _, voices := newStubDecoder(8, 0)
			feed(d, 0xE0, tt.lsb, tt.msb)
			for i, v := range voices {
				if v.pitchBend != tt.want {
					t.Errorf("voice %d pitch bend = %v, want %v", i, v.pitchBend, tt.want)
				}
			}
		})
	}
}

func TestDecoder_PitchBendReachesSilentVoices(t *testing.T) {
	d, _, voices := newStubDecoder(8, 0)

	feed(d, 0x90, 60, 100) // only one voice allocated
	feed(d, 0xE0, 0, 96)   // bend up

	for i, v := range voices {
		if v.pitchBend == 0 {
			t.Errorf("voice %d missed the pitch bend broadcast", i)
		}
	}
}

func TestDecoder_CCHook(t *testing.T) {
	d, alloc, _ := newStubDecoder(8, 0)

	var gotChannel, gotCC, gotValue uint8
	var gotAlloc *VoiceAllocator
	calls := 0
	d.SetCCHook(func(channel, cc, value uint8, a *VoiceAllocator) {
		calls++
		gotChannel, gotCC, gotValue = channel, cc, value
		gotAlloc = a
	})

	feed(d, 0xB0, 74, 99)
	if calls != 1 {
		t.Fatalf("CC hook called %d times, want 1", calls)
	}
	if gotChannel != 0 || gotCC != 74 || gotValue != 99 {
		t.Errorf("CC hook got (%d,%d,%d), want (0,74,99)", gotChannel, gotCC, gotValue)
	}
	if gotAlloc != alloc {
		t.Error("CC hook did not receive the bound allocator")
	}

	// Channel-mode messages (CC >= 120) are accepted but not forwarded.
	feed(d, 0xB0, 123, 0)
	if calls != 1 {
		t.Error("channel-mode CC reached the hook")
	}
}

func TestDecoder_ProgramChangeHook(t *testing.T) {
	d, _, _ := newStubDecoder(8, 0)

	var gotProgram uint8
	d.SetProgramChangeHook(func(channel, program uint8, a *VoiceAllocator) {
		gotProgram = program
	})

	// ProgramChange carries a single data byte.
	feed(d, 0xC0, 42)
	if gotProgram != 42 {
		t.Errorf("program change hook got %d, want 42", gotProgram)
	}
}

func TestDecoder_PolyAftertouchHookOnlyForAllocatedNotes(t *testing.T) {
	d, alloc, _ := newStubDecoder(8, 0)

	calls := 0
	var hookVoice Voice
	d.SetAftertouchHook(func(channel, note, pressure uint8, v Voice) {
		calls++
		hookVoice = v
	})

	// Aftertouch for a silent note: no call.
	feed(d, 0xA0, 60, 80)
	if calls != 0 {
		t.Fatal("aftertouch hook called for unallocated note")
	}

	feed(d, 0x90, 60, 100)
	feed(d, 0xA0, 60, 80)
	if calls != 1 {
		t.Fatalf("aftertouch hook called %d times, want 1", calls)
	}
	if hookVoice != alloc.FindAllocated(60) {
		t.Error("aftertouch hook received the wrong voice")
	}
}

func TestDecoder_ChannelPressureHook(t *testing.T) {
	d, _, _ := newStubDecoder(8, 0)

	var gotPressure uint8
	d.SetChannelPressureHook(func(channel, pressure uint8, a *VoiceAllocator) {
		gotPressure = pressure
	})

	feed(d, 0xD0, 55)
	if gotPressure != 55 {
		t.Errorf("channel pressure hook got %d, want 55", gotPressure)
	}
}

func TestDecoder_RunningStatusSurvivesRealTimeBytes(t *testing.T) {
	d, _, voices := newStubDecoder(8, 0)

	feed(d, 0x90, 60, 100, 0xFE, 64, 100) // active sensing mid-stream
	if totalTriggers(voices) != 2 {
		t.Errorf("%d triggers, want 2: real-time byte broke running status", totalTriggers(voices))
	}
}

func TestDecoder_AllocationCountBounded(t *testing.T) {
	// Total triggers never exceed the number of complete NoteOn messages
	// with nonzero velocity on the listen channel, for an arbitrary
	// stream with noise interleaved.
	d, _, voices := newStubDecoder(8, 0)

	stream := []uint8{
		0x90, 60, 100, // NoteOn ch0          (counts)
		0xF8,          // clock
		0x91, 62, 100, // NoteOn ch1          (wrong channel)
		0x90, 64, 0, // NoteOn vel 0          (acts as note off)
		0x90, 65, // incomplete, interrupted:
		0xB0, 1, 64, // CC
		0x90, 67, 100, 69, 100, // two via running status (count)
		0xF0, 60, 100, 0xF7, // SysEx payload, discarded
	}
	feed(d, stream...)

	if got := totalTriggers(voices); got != 3 {
		t.Errorf("%d triggers, want 3", got)
	}
}

func TestDecoder_NoHeapAllocationInProcess(t *testing.T) {
	d, _, _ := newStubDecoder(8, 0)
	d.SetCCHook(func(channel, cc, value uint8, a *VoiceAllocator) {})

	stream := []uint8{
		0x90, 60, 100,
		0xE0, 0, 64,
		0xB0, 74, 90,
		0x80, 60, 0,
	}

	allocs := testing.AllocsPerRun(100, func() {
		for _, b := range stream {
			d.Process(b)
		}
	})
	if allocs != 0 {
		t.Errorf("decoder allocates %v times per message burst, want 0", allocs)
	}
}

// midi_decoder.go - Byte-level MIDI stream decoder with running status

/*
░█▀█░█▀▄░█▀▀░█▀▀░█▀▀░█▀▀░█▀█░█▀▀░█▀▀
░█▀▀░█▀▄░█▀▀░▀▀█░▀▀█░█▀▀░█░█░█░░░█▀▀
░▀░░░▀░▀░▀▀▀░▀▀▀░▀▀▀░▀▀▀░▀░▀░▀▀▀░▀▀▀

Pressence - a polyphonic subtractive MIDI synthesizer
https://github.com/pressence/pressence
License: GPLv3 or later
*/

package main

import "math"

// MIDI byte classification
const (
	MIDI_STATUS_MASK  = 0x80
	MIDI_COMMAND_MASK = 0xF0
	MIDI_CHANNEL_MASK = 0x0F

	MIDI_NOTE_OFF         = 0x80
	MIDI_NOTE_ON          = 0x90
	MIDI_POLY_AFTERTOUCH  = 0xA0
	MIDI_CONTROL_CHANGE   = 0xB0
	MIDI_PROGRAM_CHANGE   = 0xC0
	MIDI_CHANNEL_PRESSURE = 0xD0
	MIDI_PITCH_BEND       = 0xE0

	MIDI_SYSEX_START     = 0xF0
	MIDI_SYSEX_END       = 0xF7
	MIDI_REALTIME_START  = 0xF8
	MIDI_CC_MODE_MESSAGE = 120 // CC >= 120 are channel-mode messages

	MIDI_PITCH_BEND_CENTER = 8192
)

// Application hooks. CC and aftertouch semantics beyond the handful of
// standard assignments are the application's business, so the decoder
// stays mapping-free and hands complete messages to these. Hooks run on
// the audio thread and must not allocate.
type (
	CCHook              func(channel, cc, value uint8, alloc *VoiceAllocator)
	AftertouchHook      func(channel, note, pressure uint8, voice Voice)
	ProgramChangeHook   func(channel, program uint8, alloc *VoiceAllocator)
	ChannelPressureHook func(channel, pressure uint8, alloc *VoiceAllocator)
)

// StreamDecoder drives a voice allocator from a raw MIDI byte stream.
//
// The decoder honors running status, tolerates system real-time bytes in
// the middle of a message, discards system-exclusive payloads, and only
// acts on channel-voice messages addressed to its listen channel. Feed it
// one byte at a time from the thread that renders audio.
type StreamDecoder struct {
	allocator     *VoiceAllocator
	listenChannel uint8

	ccHook CCHook
	atHook AftertouchHook
	pcHook ProgramChangeHook
	cpHook ChannelPressureHook

	inSysEx     bool
	runningStat uint8 // full status byte, 0 = none
	expected    int   // data bytes still needed for the current message
	data0       uint8
	haveData0   bool

	// Broadcast state for the prebound bendFn; avoids a closure
	// allocation per pitch-bend message on the audio thread.
	pendingBend float32
	bendFn      func(Voice)
}

func NewStreamDecoder(alloc *VoiceAllocator, listenChannel uint8) *StreamDecoder {
	d := &StreamDecoder{
		allocator:     alloc,
		listenChannel: listenChannel & MIDI_CHANNEL_MASK,
	}
	d.bendFn = d.applyBend
	return d
}

func (d *StreamDecoder) SetCCHook(hook CCHook)                   { d.ccHook = hook }
func (d *StreamDecoder) SetAftertouchHook(hook AftertouchHook)   { d.atHook = hook }
func (d *StreamDecoder) SetProgramChangeHook(h ProgramChangeHook) { d.pcHook = h }
func (d *StreamDecoder) SetChannelPressureHook(h ChannelPressureHook) {
	d.cpHook = h
}

func (d *StreamDecoder) ListenChannel() uint8 {
	return d.listenChannel
}

func (d *StreamDecoder) Allocator() *VoiceAllocator {
	return d.allocator
}

// dataByteCount returns how many data bytes follow a channel-voice status.
func dataByteCount(command uint8) int {
	switch command {
	case MIDI_PROGRAM_CHANGE, MIDI_CHANNEL_PRESSURE:
		return 1
	default: // NoteOff, NoteOn, PolyAftertouch, ControlChange, PitchBend
		return 2
	}
}

// Process consumes one byte of the MIDI stream.
func (d *StreamDecoder) Process(data uint8) {
	if data >= MIDI_REALTIME_START {
		// System real-time: legal anywhere, including between the data
		// bytes of a message. Passes through without touching state.
		return
	}

	if data&MIDI_STATUS_MASK != 0 {
		d.handleStatusByte(data)
		return
	}
	d.handleDataByte(data)
}

func (d *StreamDecoder) handleStatusByte(status uint8) {
	// A new status aborts any partially assembled message.
	d.haveData0 = false

	if status >= MIDI_SYSEX_START {
		// System common / exclusive. Running status does not survive.
		d.runningStat = 0
		d.expected = 0
		switch status {
		case MIDI_SYSEX_START:
			d.inSysEx = true
		case MIDI_SYSEX_END:
			d.inSysEx = false
		default:
			d.inSysEx = false
		}
		return
	}

	d.inSysEx = false

	channel := status & MIDI_CHANNEL_MASK
	if channel != d.listenChannel {
		// Foreign channel: abandon, and make sure stray data bytes that
		// follow are not reinterpreted under our previous running status.
		d.runningStat = 0
		d.expected = 0
		return
	}

	d.runningStat = status
	d.expected = dataByteCount(status & MIDI_COMMAND_MASK)
}

func (d *StreamDecoder) handleDataByte(data uint8) {
	if d.inSysEx {
		// System-exclusive payload, silently discarded.
		return
	}
	if d.runningStat == 0 {
		// Data byte with no status to apply it to.
		return
	}

	if d.expected == 2 && !d.haveData0 {
		d.data0 = data
		d.haveData0 = true
		return
	}

	command := d.runningStat & MIDI_COMMAND_MASK
	channel := d.runningStat & MIDI_CHANNEL_MASK

	if d.expected == 2 {
		d.dispatch(command, channel, d.data0, data)
	} else {
		d.dispatch(command, channel, data, 0)
	}

	// Message complete. Running status persists: the next data byte
	// starts another message of the same command.
	d.haveData0 = false
}

func (d *StreamDecoder) dispatch(command, channel, data0, data1 uint8) {
	switch command {
	case MIDI_NOTE_ON:
		if data1 == 0 {
			d.noteOff(data0)
			return
		}
		voice := d.allocator.Allocate(data0)
		voice.Trigger(midiNoteToFrequency(data0), float32(data1)/127.0)

	case MIDI_NOTE_OFF:
		// Release velocity ignored.
		d.noteOff(data0)

	case MIDI_POLY_AFTERTOUCH:
		if d.atHook == nil {
			return
		}
		if voice := d.allocator.FindAllocated(data0); voice != nil {
			d.atHook(channel, data0, data1, voice)
		}

	case MIDI_CONTROL_CHANGE:
		if data0 < MIDI_CC_MODE_MESSAGE && d.ccHook != nil {
			d.ccHook(channel, data0, data1, d.allocator)
		}
		// Channel-mode messages (CC 120..127) are accepted but not acted on.

	case MIDI_PROGRAM_CHANGE:
		if d.pcHook != nil {
			d.pcHook(channel, data0, d.allocator)
		}

	case MIDI_CHANNEL_PRESSURE:
		if d.cpHook != nil {
			d.cpHook(channel, data0, d.allocator)
		}

	case MIDI_PITCH_BEND:
		value := int(data1)<<7 | int(data0)
		normalized := float32(value-MIDI_PITCH_BEND_CENTER) / float32(MIDI_PITCH_BEND_CENTER)
		// Broadcast to every voice, silent ones included, so they bend
		// correctly when triggered.
		d.pendingBend = normalized
		d.allocator.ForEach(d.bendFn)
	}
}

func (d *StreamDecoder) applyBend(v Voice) {
	v.SetPitchBend(d.pendingBend)
}

func (d *StreamDecoder) noteOff(note uint8) {
	// FindAllocated, never Allocate: if the slot was stolen this note-off
	// must not release a voice that has been reassigned.
	if voice := d.allocator.FindAllocated(note); voice != nil {
		voice.Release()
	}
}

// midiNoteToFrequency converts a MIDI note number to Hz with A4 = 440.
func midiNoteToFrequency(note uint8) float32 {
	return float32(440.0 * math.Pow(2.0, (float64(note)-69.0)/12.0))
}

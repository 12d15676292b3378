// keyboard_controller.go - Key scanner readings to MIDI byte conversion

/*
░█▀█░█▀▄░█▀▀░█▀▀░█▀▀░█▀▀░█▀█░█▀▀░█▀▀
░█▀▀░█▀▄░█▀▀░▀▀█░▀▀█░█▀▀░█░█░█░░░█▀▀
░▀░░░▀░▀░▀▀▀░▀▀▀░▀▀▀░▀▀▀░▀░▀░▀▀▀░▀▀▀

Pressence - a polyphonic subtractive MIDI synthesizer
https://github.com/pressence/pressence
License: GPLv3 or later
*/

package main

// KeyScanner delivers raw per-key readings (capacitive counts or any
// monotonic pressure proxy). Only the readings matter here; the hardware
// measurement lives with the platform.
type KeyScanner interface {
	KeyCount() int
	ScanReadings() []uint16
}

const (
	KEYBOARD_CALIBRATION_SCANS  = 100
	KEYBOARD_NOTE_ON_THRESHOLD  = 1.20  // 20% above baseline
	KEYBOARD_NOTE_OFF_THRESHOLD = 1.10  // 10% above baseline (hysteresis)
	KEYBOARD_BASELINE_ALPHA     = 0.001 // EMA factor for baseline drift
	KEYBOARD_AFTERTOUCH_DEADBAND = 2

	KEYSCAN_MAX_KEYS = 16
)

// KeyScanStats is the telemetry snapshot of the scanner state: raw
// readings, baselines, touch ratios and the controller's view of each
// key.
type KeyScanStats struct {
	Type             string                    `json:"type"`
	KeyCount         uint8                     `json:"keyCount"`
	Readings         [KEYSCAN_MAX_KEYS]uint16  `json:"readings"`
	Baselines        [KEYSCAN_MAX_KEYS]float32 `json:"baselines"`
	Ratios           [KEYSCAN_MAX_KEYS]float32 `json:"ratios"`
	NoteStates       [KEYSCAN_MAX_KEYS]bool    `json:"noteStates"`
	AftertouchValues [KEYSCAN_MAX_KEYS]uint8   `json:"aftertouchValues"`
	NoteOnThreshold  float32                   `json:"noteOnThreshold"`
	NoteOffThreshold float32                   `json:"noteOffThreshold"`
	IsCalibrated     bool                      `json:"isCalibrated"`
}

// MidiKeyboardController converts key scanner readings into MIDI bytes:
// note on/off with hysteresis and polyphonic aftertouch from continuous
// pressure. The first KEYBOARD_CALIBRATION_SCANS scans establish each
// key's baseline; afterwards the baseline tracks slow drift with an EMA
// that freezes while the key is touched, keeping the full ratio range
// available for aftertouch.
type MidiKeyboardController struct {
	scanner   KeyScanner
	midiOut   func(byte)
	telemetry TelemetrySink[KeyScanStats]

	baseNote      uint8
	fixedVelocity uint8

	calibrationCount int
	isCalibrated     bool
	calibrationSums  []uint32

	baselines      []float32
	keyStates      []bool
	lastAftertouch []uint8

	telemetryEnabled bool
}

func NewMidiKeyboardController(scanner KeyScanner, midiOut func(byte),
	telemetry TelemetrySink[KeyScanStats], baseNote, fixedVelocity uint8) *MidiKeyboardController {
	if telemetry == nil {
		telemetry = NoTelemetrySink[KeyScanStats]{}
	}
	keyCount := scanner.KeyCount()
	return &MidiKeyboardController{
		scanner:         scanner,
		midiOut:         midiOut,
		telemetry:       telemetry,
		baseNote:        baseNote & 0x7F,
		fixedVelocity:   fixedVelocity & 0x7F,
		calibrationSums: make([]uint32, keyCount),
		baselines:       make([]float32, keyCount),
		keyStates:       make([]bool, keyCount),
		lastAftertouch:  make([]uint8, keyCount),
	}
}

// ProcessScan consumes the current readings and emits MIDI events. Call
// at the scan rate from the producer task.
func (kc *MidiKeyboardController) ProcessScan() {
	readings := kc.scanner.ScanReadings()
	keyCount := kc.scanner.KeyCount()

	if !kc.isCalibrated {
		for i := 0; i < keyCount; i++ {
			kc.calibrationSums[i] += uint32(readings[i])
		}
		kc.calibrationCount++
		if kc.calibrationCount >= KEYBOARD_CALIBRATION_SCANS {
			for i := 0; i < keyCount; i++ {
				kc.baselines[i] = float32(kc.calibrationSums[i]) / KEYBOARD_CALIBRATION_SCANS
			}
			kc.isCalibrated = true
		}
		return
	}

	for i := 0; i < keyCount; i++ {
		kc.processKey(i, readings[i])
	}

	if kc.telemetryEnabled {
		kc.sendTelemetry(readings, keyCount)
	}
}

func (kc *MidiKeyboardController) processKey(keyIndex int, reading uint16) {
	baseline := kc.baselines[keyIndex]
	if baseline <= 0 {
		return
	}
	ratio := float32(reading) / baseline
	midiNote := kc.baseNote + uint8(keyIndex)

	if !kc.keyStates[keyIndex] {
		if ratio >= KEYBOARD_NOTE_ON_THRESHOLD {
			kc.keyStates[keyIndex] = true
			kc.sendNoteOn(midiNote, kc.fixedVelocity)
			kc.lastAftertouch[keyIndex] = 0
			// Baseline tracking freezes while the key is touched.
		} else {
			kc.baselines[keyIndex] = baseline*(1.0-KEYBOARD_BASELINE_ALPHA) +
				float32(reading)*KEYBOARD_BASELINE_ALPHA
		}
		return
	}

	if ratio < KEYBOARD_NOTE_OFF_THRESHOLD {
		kc.keyStates[keyIndex] = false
		kc.sendNoteOff(midiNote)
		kc.baselines[keyIndex] = baseline*(1.0-KEYBOARD_BASELINE_ALPHA) +
			float32(reading)*KEYBOARD_BASELINE_ALPHA
		return
	}

	// Polyphonic aftertouch: more capacitance above the off threshold
	// means more pressure.
	pressure := (ratio - KEYBOARD_NOTE_OFF_THRESHOLD) / (2.0 - KEYBOARD_NOTE_OFF_THRESHOLD)
	pressure = clamp01(pressure)
	aftertouch := uint8(pressure * 127.0)

	delta := int(aftertouch) - int(kc.lastAftertouch[keyIndex])
	if delta < 0 {
		delta = -delta
	}
	if delta > KEYBOARD_AFTERTOUCH_DEADBAND {
		kc.sendPolyAftertouch(midiNote, aftertouch)
		kc.lastAftertouch[keyIndex] = aftertouch
	}
}

func (kc *MidiKeyboardController) sendTelemetry(readings []uint16, keyCount int) {
	stats := KeyScanStats{
		Type:             "keyscan",
		KeyCount:         uint8(keyCount),
		NoteOnThreshold:  KEYBOARD_NOTE_ON_THRESHOLD,
		NoteOffThreshold: KEYBOARD_NOTE_OFF_THRESHOLD,
		IsCalibrated:     true,
	}
	for i := 0; i < keyCount && i < KEYSCAN_MAX_KEYS; i++ {
		stats.Readings[i] = readings[i]
		stats.Baselines[i] = kc.baselines[i]
		stats.Ratios[i] = float32(readings[i]) / kc.baselines[i]
		stats.NoteStates[i] = kc.keyStates[i]
		stats.AftertouchValues[i] = kc.lastAftertouch[i]
	}
	kc.telemetry.Send(stats)
}

func (kc *MidiKeyboardController) SetFixedVelocity(velocity uint8) {
	kc.fixedVelocity = velocity & 0x7F
}

func (kc *MidiKeyboardController) SetBaseNote(baseNote uint8) {
	kc.baseNote = baseNote & 0x7F
}

func (kc *MidiKeyboardController) IsCalibrated() bool {
	return kc.isCalibrated
}

func (kc *MidiKeyboardController) SetTelemetryEnabled(enabled bool) {
	kc.telemetryEnabled = enabled
}

func (kc *MidiKeyboardController) sendNoteOn(note, velocity uint8) {
	kc.midiOut(MIDI_NOTE_ON)
	kc.midiOut(note & 0x7F)
	kc.midiOut(velocity & 0x7F)
}

func (kc *MidiKeyboardController) sendNoteOff(note uint8) {
	kc.midiOut(MIDI_NOTE_OFF)
	kc.midiOut(note & 0x7F)
	kc.midiOut(0x00)
}

func (kc *MidiKeyboardController) sendPolyAftertouch(note, pressure uint8) {
	kc.midiOut(MIDI_POLY_AFTERTOUCH)
	kc.midiOut(note & 0x7F)
	kc.midiOut(pressure & 0x7F)
}

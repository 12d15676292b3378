// synth_application.go - Engine wiring: decoder, voices, CC map, render loop

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
	"math"
	"sync/atomic"
	"time"
)

const (
	DEFAULT_SAMPLE_RATE  = 44100
	DEFAULT_CHANNELS     = 2
	DEFAULT_MAX_VOICES   = 8
	DEFAULT_BLOCK_FRAMES = 128

	// Telemetry snapshot every N rendered blocks.
	STATS_INTERVAL_BLOCKS = 256
)

// MidiInput is a non-blocking byte source drained by the audio thread at
// the top of each block.
type MidiInput interface {
	Poll(fn func(byte)) int
	Name() string
	Close() error
}

// RingMidiInput adapts a MidiRingBuffer to the MidiInput interface. Used
// by every producer-side byte source (scanner, arpeggiator, listener
// callbacks).
type RingMidiInput struct {
	ring *MidiRingBuffer
	name string
}

func NewRingMidiInput(ring *MidiRingBuffer, name string) *RingMidiInput {
	return &RingMidiInput{ring: ring, name: name}
}

func (r *RingMidiInput) Poll(fn func(byte)) int { return r.ring.Drain(fn) }
func (r *RingMidiInput) Name() string           { return r.name }
func (r *RingMidiInput) Close() error           { return nil }

// CC binding operations. The CC hook is a lookup into a fixed table of
// these, so handling a controller message is a switch over an enum and a
// broadcast — nothing allocates on the audio thread.
type ccOp int

const (
	CC_OP_NONE ccOp = iota
	CC_OP_WAVEFORM_SHAPE
	CC_OP_FILTER_CUTOFF
	CC_OP_FILTER_Q
	CC_OP_FILTER_ENV_ATTACK
	CC_OP_FILTER_ENV_DECAY
	CC_OP_FILTER_ENV_SUSTAIN
	CC_OP_FILTER_ENV_RELEASE
	CC_OP_OUTPUT_DRIVE
	CC_OP_POST_FILTER_CUTOFF
	CC_OP_POST_FILTER_Q
	CC_OP_CYCLE_FILTER_MODE
	CC_OP_CYCLE_WAVESHAPER
	CC_OP_CLIPBOARD_COPY
	CC_OP_CLIPBOARD_PASTE
)

type ccCurve int

const (
	CC_CURVE_LINEAR ccCurve = iota
	CC_CURVE_EXP
	CC_CURVE_EDGE // acts on value > 63, rising edge semantics
)

type CCBinding struct {
	Op    ccOp
	Curve ccCurve
	Min   float32
	Max   float32
}

// defaultCCMap is the recommended controller mapping. Each entry is
// replaceable at startup (see cc_script.go).
func defaultCCMap() [128]CCBinding {
	var m [128]CCBinding
	m[1] = CCBinding{Op: CC_OP_WAVEFORM_SHAPE, Curve: CC_CURVE_LINEAR, Min: 0, Max: 1}
	m[20] = CCBinding{Op: CC_OP_FILTER_CUTOFF, Curve: CC_CURVE_EXP, Min: 100, Max: 10000}
	m[21] = CCBinding{Op: CC_OP_FILTER_Q, Curve: CC_CURVE_LINEAR, Min: 0.1, Max: 20}
	m[25] = CCBinding{Op: CC_OP_FILTER_ENV_SUSTAIN, Curve: CC_CURVE_LINEAR, Min: 0, Max: 1}
	m[63] = CCBinding{Op: CC_OP_POST_FILTER_Q, Curve: CC_CURVE_LINEAR, Min: 0.1, Max: 20}
	m[70] = CCBinding{Op: CC_OP_POST_FILTER_CUTOFF, Curve: CC_CURVE_EXP, Min: 100, Max: 20000}
	m[71] = CCBinding{Op: CC_OP_FILTER_ENV_ATTACK, Curve: CC_CURVE_LINEAR, Min: 0.001, Max: 2.001}
	m[72] = CCBinding{Op: CC_OP_FILTER_ENV_DECAY, Curve: CC_CURVE_LINEAR, Min: 0.01, Max: 5.01}
	m[73] = CCBinding{Op: CC_OP_FILTER_ENV_RELEASE, Curve: CC_CURVE_LINEAR, Min: 0.01, Max: 5.01}
	m[74] = CCBinding{Op: CC_OP_OUTPUT_DRIVE, Curve: CC_CURVE_LINEAR, Min: 0, Max: 1}
	m[96] = CCBinding{Op: CC_OP_CYCLE_FILTER_MODE, Curve: CC_CURVE_EDGE}
	m[102] = CCBinding{Op: CC_OP_CYCLE_WAVESHAPER, Curve: CC_CURVE_EDGE}
	m[103] = CCBinding{Op: CC_OP_CLIPBOARD_COPY, Curve: CC_CURVE_EDGE}
	m[104] = CCBinding{Op: CC_OP_CLIPBOARD_PASTE, Curve: CC_CURVE_EDGE}
	return m
}

type EngineConfig struct {
	SampleRate     int
	Channels       int
	MaxVoices      int
	BlockFrames    int
	ListenChannel  uint8
	InitialProgram uint8
	Storage        ProgramStorage
	Telemetry      TelemetrySink[AudioStats]
}

type saveRequest struct {
	program uint8
	data    ProgramData
}

// Engine owns the full signal path: MIDI byte source -> decoder -> voice
// pool -> output stage. Everything under RenderAudio runs on one thread;
// file and clipboard I/O is delegated to background goroutines through
// non-blocking channels.
type Engine struct {
	sampleRate  int
	channels    int
	blockFrames int

	allocator *VoiceAllocator
	decoder   *StreamDecoder
	output    *OutputStage
	midiIn    MidiInput
	storage   ProgramStorage
	clipboard *PresetClipboard
	telemetry TelemetrySink[AudioStats]

	ccMap      [128]CCBinding
	firstVoice *WavetableVoice

	// Broadcast scratch for the prebound broadcastFn.
	pendingOp    ccOp
	pendingValue float32
	pendingMode  FilterMode
	broadcastFn  func(Voice)
	processFn    func(byte)

	currentProgram uint8
	programReq     chan uint8
	saveReq        chan saveRequest
	loadedProgram  atomic.Pointer[ProgramData]
	stopLoader     chan struct{}

	stats      audioStatsAccumulator
	blockCount uint32
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DEFAULT_SAMPLE_RATE
	}
	if cfg.Channels == 0 {
		cfg.Channels = DEFAULT_CHANNELS
	}
	if cfg.MaxVoices == 0 {
		cfg.MaxVoices = DEFAULT_MAX_VOICES
	}
	if cfg.BlockFrames == 0 {
		cfg.BlockFrames = DEFAULT_BLOCK_FRAMES
	}
	if cfg.Storage == nil {
		cfg.Storage = NewEmbeddedProgramStorage()
	}
	if cfg.Telemetry == nil {
		cfg.Telemetry = NoTelemetrySink[AudioStats]{}
	}
	if cfg.InitialProgram == 0 {
		cfg.InitialProgram = 1
	}

	e := &Engine{
		sampleRate:     cfg.SampleRate,
		channels:       cfg.Channels,
		blockFrames:    cfg.BlockFrames,
		storage:        cfg.Storage,
		clipboard:      NewPresetClipboard(),
		telemetry:      cfg.Telemetry,
		ccMap:          defaultCCMap(),
		currentProgram: cfg.InitialProgram,
		programReq:     make(chan uint8, 4),
		saveReq:        make(chan saveRequest, 4),
		stopLoader:     make(chan struct{}),
	}

	sampleRate := float32(cfg.SampleRate)
	e.allocator = NewVoiceAllocator(cfg.MaxVoices, func() Voice {
		v := NewWavetableVoice(sampleRate)
		if e.firstVoice == nil {
			e.firstVoice = v
		}
		return v
	})

	e.decoder = NewStreamDecoder(e.allocator, cfg.ListenChannel)
	e.decoder.SetCCHook(e.handleCC)
	e.decoder.SetProgramChangeHook(e.handleProgramChange)
	e.decoder.SetAftertouchHook(e.handlePolyAftertouch)

	e.output = NewOutputStage(sampleRate, cfg.BlockFrames)
	e.broadcastFn = e.broadcastVoice
	e.processFn = e.decoder.Process

	// Initial program, applied before the audio loop exists.
	if err := e.storage.Load(e.currentProgram, e.allocator); err != nil {
		fmt.Printf("program %d not found, using defaults\n", e.currentProgram)
	} else {
		fmt.Printf("loaded program %d\n", e.currentProgram)
	}

	return e
}

func (e *Engine) SampleRate() int            { return e.sampleRate }
func (e *Engine) Channels() int              { return e.channels }
func (e *Engine) BlockFrames() int           { return e.blockFrames }
func (e *Engine) Allocator() *VoiceAllocator { return e.allocator }
func (e *Engine) Decoder() *StreamDecoder    { return e.decoder }
func (e *Engine) Output() *OutputStage       { return e.output }
func (e *Engine) Clipboard() *PresetClipboard {
	return e.clipboard
}
func (e *Engine) CurrentProgram() uint8 { return e.currentProgram }

// SetMidiInput attaches the byte source drained at the top of each block.
func (e *Engine) SetMidiInput(in MidiInput) {
	e.midiIn = in
}

// SetCCBinding replaces one controller mapping entry. Startup-time only.
func (e *Engine) SetCCBinding(cc uint8, binding CCBinding) {
	if cc < 128 {
		e.ccMap[cc] = binding
	}
}

// Start launches the background program loader/saver. Call before the
// audio loop begins.
func (e *Engine) Start() {
	go e.storageWorker()
}

// Stop shuts the background workers down. The audio loop must already
// have stopped.
func (e *Engine) Stop() {
	close(e.stopLoader)
	e.clipboard.StopSystemSync()
	e.telemetry.Close()
	if e.midiIn != nil {
		e.midiIn.Close()
	}
}

// storageWorker services program-change loads and clipboard-paste saves
// so the render thread never touches a file.
func (e *Engine) storageWorker() {
	for {
		select {
		case <-e.stopLoader:
			return
		case prog := <-e.programReq:
			var p ProgramData
			if reader, ok := e.storage.(ProgramReader); ok {
				loaded, err := reader.ReadProgram(prog)
				if err != nil {
					fmt.Printf("program %d not found, using defaults\n", prog)
				} else {
					fmt.Printf("loaded program %d\n", prog)
				}
				p = loaded
			} else {
				p = DefaultProgram()
			}
			pending := p
			e.loadedProgram.Store(&pending)
		case req := <-e.saveReq:
			if writer, ok := e.storage.(ProgramWriter); ok {
				if err := writer.WriteProgram(req.program, req.data); err != nil {
					fmt.Printf("%v\n", err)
				} else {
					fmt.Printf("saved program %d\n", req.program)
				}
			}
		}
	}
}

// ProcessMidiByte feeds one byte to the decoder. Audio thread only.
func (e *Engine) ProcessMidiByte(b byte) {
	e.decoder.Process(b)
}

// RenderAudio fills buf with interleaved stereo frames. This is the audio
// callback body: apply any finished program load, drain the MIDI source,
// render. Allocation-free after construction.
func (e *Engine) RenderAudio(buf []float32, numFrames int) {
	start := time.Now()

	if p := e.loadedProgram.Swap(nil); p != nil {
		p.ApplyToVoices(e.allocator)
	}

	if e.midiIn != nil {
		e.midiIn.Poll(e.processFn)
	}

	for offset := 0; offset < numFrames; {
		n := numFrames - offset
		if n > e.blockFrames {
			n = e.blockFrames
		}
		e.output.RenderBlock(e.allocator, buf[offset*2:(offset+n)*2], n)
		offset += n
	}

	elapsed := uint32(time.Since(start) / time.Microsecond)
	e.stats.addBlock(elapsed, numFrames)
	e.blockCount++
	if e.blockCount%STATS_INTERVAL_BLOCKS == 0 {
		bufferUs := uint32(uint64(numFrames) * 1e6 / uint64(e.sampleRate))
		e.telemetry.Send(e.stats.snapshot(bufferUs))
		e.stats = audioStatsAccumulator{}
	}
}

// ReportUnderrun lets an audio sink record a buffer underrun in the
// telemetry stream.
func (e *Engine) ReportUnderrun() {
	e.stats.addUnderrun()
}

func (e *Engine) broadcastVoice(voice Voice) {
	ws, ok := voice.(*WavetableVoice)
	if !ok {
		return
	}
	switch e.pendingOp {
	case CC_OP_WAVEFORM_SHAPE:
		ws.SetTimbre(e.pendingValue)
	case CC_OP_FILTER_CUTOFF:
		ws.SetBaseCutoff(e.pendingValue)
	case CC_OP_FILTER_Q:
		ws.Filter().SetQ(e.pendingValue)
	case CC_OP_FILTER_ENV_ATTACK:
		ws.FilterEnvelope().SetAttackTime(e.pendingValue)
	case CC_OP_FILTER_ENV_DECAY:
		ws.FilterEnvelope().SetDecayTime(e.pendingValue)
	case CC_OP_FILTER_ENV_SUSTAIN:
		ws.FilterEnvelope().SetSustainLevel(e.pendingValue)
	case CC_OP_FILTER_ENV_RELEASE:
		ws.FilterEnvelope().SetReleaseTime(e.pendingValue)
	case CC_OP_CYCLE_FILTER_MODE:
		ws.Filter().SetMode(e.pendingMode)
	}
}

// handleCC is the default controller hook: scale the 7-bit value through
// the binding's curve and broadcast.
func (e *Engine) handleCC(channel, cc, value uint8, alloc *VoiceAllocator) {
	binding := &e.ccMap[cc]
	if binding.Op == CC_OP_NONE {
		return
	}

	normalized := float32(value) / 127.0
	var scaled float32
	switch binding.Curve {
	case CC_CURVE_LINEAR:
		scaled = binding.Min + normalized*(binding.Max-binding.Min)
	case CC_CURVE_EXP:
		scaled = binding.Min * float32(math.Pow(float64(binding.Max/binding.Min), float64(normalized)))
	case CC_CURVE_EDGE:
		if value <= 63 {
			return
		}
	}

	switch binding.Op {
	case CC_OP_OUTPUT_DRIVE:
		e.output.SetDrive(scaled)
	case CC_OP_POST_FILTER_CUTOFF:
		e.output.PostFilter().SetCutoff(scaled)
	case CC_OP_POST_FILTER_Q:
		e.output.PostFilter().SetQ(scaled)
	case CC_OP_CYCLE_WAVESHAPER:
		e.output.NextMode()
	case CC_OP_CYCLE_FILTER_MODE:
		e.pendingOp = CC_OP_CYCLE_FILTER_MODE
		e.pendingMode = NextFilterMode(e.firstVoice.Filter().Mode())
		alloc.ForEach(e.broadcastFn)
	case CC_OP_CLIPBOARD_COPY:
		e.clipboard.Capture(alloc)
	case CC_OP_CLIPBOARD_PASTE:
		// Program 1 is the protected default slot.
		if e.currentProgram == 1 {
			return
		}
		if e.clipboard.Apply(alloc) {
			select {
			case e.saveReq <- saveRequest{program: e.currentProgram, data: e.clipboard.Program()}:
			default:
			}
		}
	default:
		e.pendingOp = binding.Op
		e.pendingValue = scaled
		alloc.ForEach(e.broadcastFn)
	}
}

// handleProgramChange queues a storage load; the data is applied at the
// top of a later block.
func (e *Engine) handleProgramChange(channel, program uint8, alloc *VoiceAllocator) {
	e.currentProgram = program
	select {
	case e.programReq <- program:
	default:
	}
}

// handlePolyAftertouch is a hook point without a default mapping.
// TODO: map pressure onto per-voice cutoff once the capacitive keyboard
// ships aftertouch calibration data.
func (e *Engine) handlePolyAftertouch(channel, note, pressure uint8, voice Voice) {
}

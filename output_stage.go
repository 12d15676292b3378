// output_stage.go - Voice mix, switchable waveshaper, post filter

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

const (
	DEFAULT_POST_FILTER_CUTOFF = 10000.0
	DEFAULT_POST_FILTER_Q      = 0.707

	WAVEFOLD_SOFTNESS = 3.0
)

// driveToGain maps a normalized drive in [0,1] exponentially onto
// [0.1, 10]: 0.0 -> 0.1x, 0.5 -> unity, 1.0 -> 10x.
func driveToGain(drive float32) float32 {
	return float32(0.1 * math.Pow(100.0, float64(drive)))
}

// Waveshaper is a memoryless nonlinearity applied in place to the mixed
// mono buffer.
type Waveshaper interface {
	Name() string
	ProcessBuffer(buffer []float32)
	SetDrive(drive float32)
	Drive() float32
}

type shaperBase struct {
	drive float32
}

func (s *shaperBase) SetDrive(drive float32) {
	s.drive = clamp01(drive)
}

func (s *shaperBase) Drive() float32 {
	return s.drive
}

// TanhSoftClip saturates with tanh: smooth limiting for large signals,
// near-unity for small ones at drive 0.5.
type TanhSoftClip struct {
	shaperBase
}

func (s *TanhSoftClip) Name() string { return "TanhSoftClip" }

func (s *TanhSoftClip) ProcessBuffer(buffer []float32) {
	gain := driveToGain(s.drive)
	for i := range buffer {
		buffer[i] = float32(math.Tanh(float64(buffer[i] * gain)))
	}
}

// HardWaveFolder folds peaks back across the ±1 boundaries instead of
// clipping them, producing a triangle transfer curve with rich metallic
// harmonics.
type HardWaveFolder struct {
	shaperBase
}

func (s *HardWaveFolder) Name() string { return "HardWaveFolder" }

func (s *HardWaveFolder) ProcessBuffer(buffer []float32) {
	gain := driveToGain(s.drive)
	for i := range buffer {
		buffer[i] = wavefold(buffer[i] * gain)
	}
}

// SoftWaveFolder folds like HardWaveFolder, then rounds the fold points
// with tanh for a warmer character.
type SoftWaveFolder struct {
	shaperBase
}

func (s *SoftWaveFolder) Name() string { return "SoftWaveFolder" }

func (s *SoftWaveFolder) ProcessBuffer(buffer []float32) {
	gain := driveToGain(s.drive)
	norm := float32(math.Tanh(WAVEFOLD_SOFTNESS))
	for i := range buffer {
		folded := wavefold(buffer[i] * gain)
		buffer[i] = float32(math.Tanh(float64(folded*WAVEFOLD_SOFTNESS))) / norm
	}
}

// wavefold maps x onto a repeating triangle over ±1.
func wavefold(x float32) float32 {
	u := x*0.5 + 0.5
	u = float32(math.Mod(float64(u), 2.0))
	if u < 0.0 {
		u += 2.0
	}
	if u > 1.0 {
		u = 2.0 - u
	}
	return u*2.0 - 1.0
}

// OutputStage sums the voice pool into a mono block, applies the active
// waveshaper and a post low-pass, then duplicates mono into interleaved
// stereo. All buffers are sized at construction; rendering allocates
// nothing.
type OutputStage struct {
	shapers    [3]Waveshaper
	active     int
	postFilter *BiquadFilter
	drive      float32

	monoBuf []float32
	mixFn   func(Voice)
	mixAcc  float32

	// Scope tap for visual frontends. Written by the render thread,
	// read racily by the GUI; the worst case is a torn frame on screen.
	scopeBuf [SCOPE_TAP_SIZE]float32
}

const SCOPE_TAP_SIZE = 512

func NewOutputStage(sampleRate float32, maxBlockFrames int) *OutputStage {
	o := &OutputStage{
		postFilter: NewBiquadFilter(sampleRate),
		drive:      0.5,
		monoBuf:    make([]float32, maxBlockFrames),
	}
	o.shapers[0] = &TanhSoftClip{}
	o.shapers[1] = &HardWaveFolder{}
	o.shapers[2] = &SoftWaveFolder{}
	for _, s := range o.shapers {
		s.SetDrive(o.drive)
	}
	o.postFilter.SetMode(FILTER_LOWPASS)
	o.postFilter.SetCutoff(DEFAULT_POST_FILTER_CUTOFF)
	o.postFilter.SetQ(DEFAULT_POST_FILTER_Q)
	o.mixFn = o.mixVoice
	return o
}

func (o *OutputStage) mixVoice(v Voice) {
	o.mixAcc += v.NextSample()
}

// RenderBlock fills out with numFrames interleaved stereo frames from the
// voice pool. len(out) must be at least numFrames*2.
func (o *OutputStage) RenderBlock(alloc *VoiceAllocator, out []float32, numFrames int) {
	if numFrames > len(o.monoBuf) {
		numFrames = len(o.monoBuf)
	}
	mono := o.monoBuf[:numFrames]

	for frame := 0; frame < numFrames; frame++ {
		o.mixAcc = 0.0
		alloc.ForEach(o.mixFn)
		mono[frame] = o.mixAcc
	}

	o.shapers[o.active].ProcessBuffer(mono)

	for frame := 0; frame < numFrames; frame++ {
		mono[frame] = o.postFilter.ProcessSample(mono[frame])
	}

	for frame := 0; frame < numFrames; frame++ {
		out[frame*2] = mono[frame]
		out[frame*2+1] = mono[frame]
	}

	copy(o.scopeBuf[:], mono)
}

// ScopeSnapshot copies the most recent mono samples into dst and returns
// the number copied.
func (o *OutputStage) ScopeSnapshot(dst []float32) int {
	return copy(dst, o.scopeBuf[:])
}

// NextMode cycles the waveshaper. The post filter keeps two samples of
// state computed from the previous shaper's output curve, so it is reset
// to avoid a transient.
func (o *OutputStage) NextMode() {
	o.active = (o.active + 1) % len(o.shapers)
	o.postFilter.Reset()
}

func (o *OutputStage) SetModeIndex(index int) {
	if index >= 0 && index < len(o.shapers) {
		if index != o.active {
			o.active = index
			o.postFilter.Reset()
		}
	}
}

func (o *OutputStage) ModeIndex() int {
	return o.active
}

func (o *OutputStage) Name() string {
	return o.shapers[o.active].Name()
}

func (o *OutputStage) SetDrive(drive float32) {
	o.drive = clamp01(drive)
	for _, s := range o.shapers {
		s.SetDrive(o.drive)
	}
}

func (o *OutputStage) Drive() float32 {
	return o.drive
}

func (o *OutputStage) PostFilter() *BiquadFilter {
	return o.postFilter
}

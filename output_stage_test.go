// output_stage_test.go - Mix, waveshaper and post filter test suite

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

func TestDriveToGainEndpoints(t *testing.T) {
	tests := []struct {
		drive float32
		want  float64
	}{
		{0.0, 0.1},
		{0.5, 1.0},
		{1.0, 10.0},
	}
	for _, tt := range tests {
		got := float64(driveToGain(tt.drive))
		if math.Abs(got-tt.want) > 1e-4 {
			t.Errorf("driveToGain(%v) = %v, want %v", tt.drive, got, tt.want)
		}
	}
}

func TestTanhSoftClip_UnityForSmallSignals(t *testing.T) {
	s := &TanhSoftClip{}
	s.SetDrive(0.5) // unity gain

	buf := []float32{0.01, -0.01, 0.05, -0.05}
	want := make([]float32, len(buf))
	copy(want, buf)

	s.ProcessBuffer(buf)
	for i := range buf {
		if math.Abs(float64(buf[i]-want[i])) > 0.001 {
			t.Errorf("small signal %v distorted to %v at unity drive", want[i], buf[i])
		}
	}
}

func TestTanhSoftClip_LimitsLargeSignals(t *testing.T) {
	s := &TanhSoftClip{}
	s.SetDrive(1.0)

	buf := []float32{5.0, -5.0, 100.0, -100.0}
	s.ProcessBuffer(buf)
	for i, v := range buf {
		if v < -1.0 || v > 1.0 {
			t.Errorf("clipped sample %d = %v outside [-1,1]", i, v)
		}
	}
	if buf[0] < 0.99 {
		t.Errorf("hard-driven positive sample = %v, want ~1", buf[0])
	}
}

func TestWavefold_IdentityInsideRange(t *testing.T) {
	// Inside ±1 the folder is the identity.
	for _, x := range []float32{-1.0, -0.5, 0.0, 0.5, 1.0} {
		if got := wavefold(x); math.Abs(float64(got-x)) > 1e-6 {
			t.Errorf("wavefold(%v) = %v, want identity", x, got)
		}
	}
}

func TestWavefold_FoldsPeaksBack(t *testing.T) {
	// 1.5 folds down to 0.5, 2.0 folds to 0.0, -1.5 folds to -0.5.
	tests := []struct{ in, want float32 }{
		{1.5, 0.5},
		{2.0, 0.0},
		{-1.5, -0.5},
		{3.0, -1.0},
	}
	for _, tt := range tests {
		if got := wavefold(tt.in); math.Abs(float64(got-tt.want)) > 1e-5 {
			t.Errorf("wavefold(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWaveshapers_ZeroInZeroOut(t *testing.T) {
	shapers := []Waveshaper{&TanhSoftClip{}, &HardWaveFolder{}, &SoftWaveFolder{}}
	for _, s := range shapers {
		for _, drive := range []float32{0.0, 0.5, 1.0} {
			s.SetDrive(drive)
			buf := []float32{0, 0, 0, 0}
			s.ProcessBuffer(buf)
			for _, v := range buf {
				if v != 0 {
					t.Errorf("%s at drive %v maps silence to %v", s.Name(), drive, v)
				}
			}
		}
	}
}

func TestWaveshapers_OutputBounded(t *testing.T) {
	shapers := []Waveshaper{&TanhSoftClip{}, &HardWaveFolder{}, &SoftWaveFolder{}}
	for _, s := range shapers {
		s.SetDrive(1.0)
		buf := make([]float32, 256)
		for i := range buf {
			buf[i] = float32(i-128) / 16.0 // -8..+8
		}
		s.ProcessBuffer(buf)
		for i, v := range buf {
			if v < -1.0001 || v > 1.0001 {
				t.Errorf("%s output[%d] = %v outside [-1,1]", s.Name(), i, v)
			}
		}
	}
}

func TestOutputStage_SilentPoolRendersZero(t *testing.T) {
	alloc, _ := newStubAllocator(8) // all stubs inactive, output 0
	stage := NewOutputStage(44100, 128)

	out := make([]float32, 256)
	stage.RenderBlock(alloc, out, 128)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("silent pool produced %v at %d", v, i)
		}
	}
}

func TestOutputStage_StereoDuplication(t *testing.T) {
	alloc, voices := newStubAllocator(2)
	voices[0].sampleOutput = 0.25
	voices[0].active = true

	stage := NewOutputStage(44100, 128)
	out := make([]float32, 256)
	stage.RenderBlock(alloc, out, 128)

	for frame := 0; frame < 128; frame++ {
		if out[frame*2] != out[frame*2+1] {
			t.Fatalf("frame %d: left %v != right %v", frame, out[frame*2], out[frame*2+1])
		}
	}
}

func TestOutputStage_MixSumsAllVoices(t *testing.T) {
	alloc, voices := newStubAllocator(4)
	for _, v := range voices {
		v.sampleOutput = 0.1
		v.active = true
	}

	stage := NewOutputStage(44100, 16)
	// Disable the shaper/filter influence as far as possible: unity
	// drive, wide-open post filter.
	stage.SetDrive(0.5)
	stage.PostFilter().SetCutoff(21000)

	out := make([]float32, 32)
	for i := 0; i < 100; i++ { // let the post filter settle
		stage.RenderBlock(alloc, out, 16)
	}

	got := float64(out[0])
	if math.Abs(got-0.4) > 0.03 {
		t.Errorf("mixed steady-state output = %v, want ~0.4 (4 x 0.1)", got)
	}
}

func TestOutputStage_ModeCycle(t *testing.T) {
	stage := NewOutputStage(44100, 128)

	names := []string{stage.Name()}
	stage.NextMode()
	names = append(names, stage.Name())
	stage.NextMode()
	names = append(names, stage.Name())

	want := []string{"TanhSoftClip", "HardWaveFolder", "SoftWaveFolder"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("mode %d = %s, want %s", i, names[i], want[i])
		}
	}

	stage.NextMode()
	if stage.Name() != "TanhSoftClip" {
		t.Errorf("mode cycle does not wrap, got %s", stage.Name())
	}
}

func TestOutputStage_ModeSwitchResetsPostFilter(t *testing.T) {
	alloc, voices := newStubAllocator(1)
	voices[0].sampleOutput = 0.5
	voices[0].active = true

	stage := NewOutputStage(44100, 128)
	out := make([]float32, 256)
	stage.RenderBlock(alloc, out, 128) // charge the post filter

	stage.NextMode()

	// With the delay line cleared, the first output after the switch
	// matches a freshly constructed stage in the same mode.
	fresh := NewOutputStage(44100, 128)
	fresh.NextMode()
	freshOut := make([]float32, 256)

	stage.RenderBlock(alloc, out, 128)
	fresh.RenderBlock(alloc, freshOut, 128)
	if out[0] != freshOut[0] {
		t.Errorf("post filter kept state across mode switch: %v vs %v", out[0], freshOut[0])
	}
}

func TestOutputStage_PostFilterDefaults(t *testing.T) {
	stage := NewOutputStage(44100, 128)
	if got := stage.PostFilter().Cutoff(); got != DEFAULT_POST_FILTER_CUTOFF {
		t.Errorf("post filter cutoff = %v, want %v", got, DEFAULT_POST_FILTER_CUTOFF)
	}
	if got := stage.PostFilter().Q(); got != DEFAULT_POST_FILTER_Q {
		t.Errorf("post filter Q = %v, want %v", got, DEFAULT_POST_FILTER_Q)
	}
	if stage.PostFilter().Mode() != FILTER_LOWPASS {
		t.Errorf("post filter mode = %v, want lowpass", stage.PostFilter().Mode())
	}
}

func TestOutputStage_DriveClampedAndShared(t *testing.T) {
	stage := NewOutputStage(44100, 128)
	stage.SetDrive(7.5)
	if stage.Drive() != 1.0 {
		t.Errorf("drive = %v after SetDrive(7.5), want 1", stage.Drive())
	}
	stage.NextMode()
	// The new shaper sees the same drive.
	if stage.shapers[stage.ModeIndex()].Drive() != 1.0 {
		t.Error("drive not shared across shaper modes")
	}
}

func TestOutputStage_RenderAllocationFree(t *testing.T) {
	alloc, voices := newStubAllocator(8)
	voices[0].sampleOutput = 0.3
	voices[0].active = true

	stage := NewOutputStage(44100, 128)
	out := make([]float32, 256)

	allocs := testing.AllocsPerRun(100, func() {
		stage.RenderBlock(alloc, out, 128)
	})
	if allocs != 0 {
		t.Errorf("RenderBlock allocates %v times per block, want 0", allocs)
	}
}

// program_storage.go - Preset persistence backends

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
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
)

// ProgramStorage saves and loads presets against a voice allocator.
// Implementations run off the audio thread only; program load is never
// attempted while a block is rendering.
type ProgramStorage interface {
	// Load applies the stored program to the allocator. On failure the
	// defaults are applied and the error is returned so the caller can
	// report it; the voices are always left in a consistent state.
	Load(program uint8, alloc *VoiceAllocator) error
	// Save captures the allocator's current settings under the program
	// number.
	Save(program uint8, alloc *VoiceAllocator) error
}

// ProgramReader is the data-level half of a storage backend. The engine
// uses it from a background goroutine to service runtime program changes:
// the file is read here, the resulting ProgramData is applied on the
// audio thread.
type ProgramReader interface {
	ReadProgram(program uint8) (ProgramData, error)
}

// ProgramWriter persists preset data that was already captured on the
// audio thread.
type ProgramWriter interface {
	WriteProgram(program uint8, p ProgramData) error
}

// FilesystemProgramStorage keeps presets as JSON files under
// <basePath>/bank_0/program_<n>.json.
type FilesystemProgramStorage struct {
	basePath string
}

func NewFilesystemProgramStorage(basePath string) *FilesystemProgramStorage {
	if basePath == "" {
		basePath = "patches"
	}
	return &FilesystemProgramStorage{basePath: basePath}
}

func (s *FilesystemProgramStorage) programPath(program uint8) string {
	return filepath.Join(s.basePath, "bank_0", fmt.Sprintf("program_%d.json", program))
}

func (s *FilesystemProgramStorage) ReadProgram(program uint8) (ProgramData, error) {
	path := s.programPath(program)
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultProgram(), fmt.Errorf("read program %d: %w", program, err)
	}

	p, err := UnmarshalProgram(data)
	if err != nil {
		return DefaultProgram(), fmt.Errorf("read program %d: parse %s: %w", program, path, err)
	}
	return p, nil
}

func (s *FilesystemProgramStorage) WriteProgram(program uint8, p ProgramData) error {
	dir := filepath.Join(s.basePath, "bank_0")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save program %d: %w", program, err)
	}

	data, err := p.MarshalPretty()
	if err != nil {
		return fmt.Errorf("save program %d: %w", program, err)
	}
	if err := os.WriteFile(s.programPath(program), data, 0o644); err != nil {
		return fmt.Errorf("save program %d: %w", program, err)
	}
	return nil
}

func (s *FilesystemProgramStorage) Load(program uint8, alloc *VoiceAllocator) error {
	p, err := s.ReadProgram(program)
	p.ApplyToVoices(alloc)
	return err
}

func (s *FilesystemProgramStorage) Save(program uint8, alloc *VoiceAllocator) error {
	var p ProgramData
	p.CaptureFromVoices(alloc)
	return s.WriteProgram(program, p)
}

//go:embed presets/default_program.json
var embeddedDefaultProgram []byte

// EmbeddedProgramStorage serves the compiled-in default preset for every
// program number. Used on targets without a filesystem and as the
// fallback when no patch directory exists.
type EmbeddedProgramStorage struct {
	program ProgramData
}

func NewEmbeddedProgramStorage() *EmbeddedProgramStorage {
	p, err := UnmarshalProgram(embeddedDefaultProgram)
	if err != nil {
		p = DefaultProgram()
	}
	return &EmbeddedProgramStorage{program: p}
}

func (s *EmbeddedProgramStorage) ReadProgram(program uint8) (ProgramData, error) {
	return s.program, nil
}

func (s *EmbeddedProgramStorage) Load(program uint8, alloc *VoiceAllocator) error {
	s.program.ApplyToVoices(alloc)
	return nil
}

func (s *EmbeddedProgramStorage) Save(program uint8, alloc *VoiceAllocator) error {
	return fmt.Errorf("save program %d: embedded storage is read-only", program)
}

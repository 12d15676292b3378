//go:build gui && !headless

// gui_keyboard_ebiten.go - On-screen keyboard and oscilloscope frontend

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
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"
)

func init() {
	compiledFeatures = append(compiledFeatures, "gui:ebiten")
}

const (
	GUI_WIDTH  = 800
	GUI_HEIGHT = 400

	GUI_KEY_COUNT = 24 // two octaves from C4
	GUI_BASE_NOTE = 60
)

// Computer-keyboard rows mapped onto the on-screen keys: home row plus
// the row above, tracker style.
var guiKeyBindings = []ebiten.Key{
	ebiten.KeyA, ebiten.KeyW, ebiten.KeyS, ebiten.KeyE, ebiten.KeyD,
	ebiten.KeyF, ebiten.KeyT, ebiten.KeyG, ebiten.KeyY, ebiten.KeyH,
	ebiten.KeyU, ebiten.KeyJ, ebiten.KeyK, ebiten.KeyO, ebiten.KeyL,
}

type keyboardGUI struct {
	engine *Engine
	ring   *MidiRingBuffer

	keyDown  [GUI_KEY_COUNT]bool
	mouseKey int // -1 when no key is mouse-held
	scope    [SCOPE_TAP_SIZE]float32
}

// RunKeyboardGUI opens the frontend window and blocks until it closes.
// Must run on the main goroutine; the audio sink keeps rendering in the
// background and the GUI only pushes MIDI bytes into the ring.
func RunKeyboardGUI(engine *Engine, ring *MidiRingBuffer) error {
	ebiten.SetWindowSize(GUI_WIDTH, GUI_HEIGHT)
	ebiten.SetWindowTitle(fmt.Sprintf("Pressence %s", Version))
	return ebiten.RunGame(&keyboardGUI{engine: engine, ring: ring, mouseKey: -1})
}

func (g *keyboardGUI) Update() error {
	for i, key := range guiKeyBindings {
		if i >= GUI_KEY_COUNT {
			break
		}
		down := ebiten.IsKeyPressed(key)
		if down && !g.keyDown[i] {
			g.sendNoteOn(GUI_BASE_NOTE + uint8(i))
		}
		if !down && g.keyDown[i] {
			g.sendNoteOff(GUI_BASE_NOTE + uint8(i))
		}
		g.keyDown[i] = down
	}

	// Mouse clicks on the drawn keys, tracked separately from the
	// computer keyboard so the two can't fight over one note.
	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		x, y := ebiten.CursorPosition()
		if i := g.keyAt(x, y); i != g.mouseKey {
			if g.mouseKey >= 0 {
				g.sendNoteOff(GUI_BASE_NOTE + uint8(g.mouseKey))
			}
			if i >= 0 {
				g.sendNoteOn(GUI_BASE_NOTE + uint8(i))
			}
			g.mouseKey = i
		}
	} else if g.mouseKey >= 0 {
		g.sendNoteOff(GUI_BASE_NOTE + uint8(g.mouseKey))
		g.mouseKey = -1
	}

	return nil
}

func (g *keyboardGUI) keyAt(x, y int) int {
	if y < GUI_HEIGHT/2 {
		return -1
	}
	i := x * GUI_KEY_COUNT / GUI_WIDTH
	if i < 0 || i >= GUI_KEY_COUNT {
		return -1
	}
	return i
}

func (g *keyboardGUI) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 16, G: 16, B: 24, A: 255})

	// Oscilloscope over the top half.
	g.engine.Output().ScopeSnapshot(g.scope[:])
	prevY := float32(GUI_HEIGHT) * 0.25
	for i := 1; i < len(g.scope); i++ {
		x0 := float32(i-1) * GUI_WIDTH / float32(len(g.scope))
		x1 := float32(i) * GUI_WIDTH / float32(len(g.scope))
		y := (1.0 - g.scope[i]) * GUI_HEIGHT * 0.25
		vector.StrokeLine(screen, x0, prevY, x1, y, 1,
			color.RGBA{R: 80, G: 220, B: 140, A: 255}, true)
		prevY = y
	}

	// Keyboard over the bottom half.
	keyW := float32(GUI_WIDTH) / GUI_KEY_COUNT
	for i := 0; i < GUI_KEY_COUNT; i++ {
		fill := color.RGBA{R: 230, G: 230, B: 230, A: 255}
		if isSharpNote(GUI_BASE_NOTE + uint8(i)) {
			fill = color.RGBA{R: 60, G: 60, B: 70, A: 255}
		}
		if g.keyDown[i] || i == g.mouseKey {
			fill = color.RGBA{R: 255, G: 120, B: 60, A: 255}
		}
		vector.DrawFilledRect(screen, float32(i)*keyW+1, GUI_HEIGHT/2,
			keyW-2, GUI_HEIGHT/2, fill, false)
	}

	status := fmt.Sprintf("program %d  shaper %s  drive %.2f",
		g.engine.CurrentProgram(), g.engine.Output().Name(), g.engine.Output().Drive())
	text.Draw(screen, status, basicfont.Face7x13, 8, 16, color.White)
}

func (g *keyboardGUI) Layout(outsideWidth, outsideHeight int) (int, int) {
	return GUI_WIDTH, GUI_HEIGHT
}

func isSharpNote(note uint8) bool {
	switch note % 12 {
	case 1, 3, 6, 8, 10:
		return true
	}
	return false
}

func (g *keyboardGUI) sendNoteOn(note uint8) {
	g.ring.Push(MIDI_NOTE_ON)
	g.ring.Push(note & 0x7F)
	g.ring.Push(100)
}

func (g *keyboardGUI) sendNoteOff(note uint8) {
	g.ring.Push(MIDI_NOTE_OFF)
	g.ring.Push(note & 0x7F)
	g.ring.Push(0x00)
}

// main.go - Pressence synthesizer entry point

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
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func boilerPlate() {
	fmt.Println("\n░█▀█░█▀▄░█▀▀░█▀▀░█▀▀░█▀▀░█▀█░█▀▀░█▀▀")
	fmt.Println("░█▀▀░█▀▄░█▀▀░▀▀█░▀▀█░█▀▀░█░█░█░░░█▀▀")
	fmt.Println("░▀░░░▀░▀░▀▀▀░▀▀▀░▀▀▀░▀▀▀░▀░▀░▀▀▀░▀▀▀")
	fmt.Printf("\nPressence %s - a polyphonic subtractive MIDI synthesizer\n", Version)
	fmt.Println("https://github.com/pressence/pressence")
	fmt.Println("License: GPLv3 or later")
	fmt.Println()
}

func main() {
	var (
		listDevices   bool
		showFeatures  bool
		midiDevice    string
		midiPort      string
		backendName   string
		useKeyboard   bool
		useArp        bool
		useGUI        bool
		useClipboard  bool
		wavPath       string
		wavSeconds    float64
		bytesPath     string
		listenChannel int
		maxVoices     int
		patchesDir    string
		program       int
		mappingPath   string
		telemetryPath string
	)

	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.BoolVar(&listDevices, "list", false, "List MIDI input devices and exit")
	flagSet.BoolVar(&showFeatures, "features", false, "Show compiled features and exit")
	flagSet.StringVar(&midiDevice, "midi", "", "ALSA raw MIDI device (e.g. hw:1,0,0)")
	flagSet.StringVar(&midiPort, "port", "", "rtmidi input port name (substring match)")
	flagSet.StringVar(&backendName, "backend", "oto", "Audio backend: oto or alsa")
	flagSet.BoolVar(&useKeyboard, "keyboard", false, "Play from the terminal (awsedftgyhuj, q quits)")
	flagSet.BoolVar(&useArp, "arp", false, "Run the built-in arpeggio demo")
	flagSet.BoolVar(&useGUI, "gui", false, "Open the on-screen keyboard frontend")
	flagSet.BoolVar(&useClipboard, "clipboard", false, "Mirror preset copies to the system clipboard")
	flagSet.StringVar(&wavPath, "wav", "", "Render offline to a WAV file instead of playing")
	flagSet.Float64Var(&wavSeconds, "seconds", 5.0, "Duration of the offline render")
	flagSet.StringVar(&bytesPath, "bytes", "", "Raw MIDI byte file fed before the offline render")
	flagSet.IntVar(&listenChannel, "channel", 0, "MIDI listen channel (0-15)")
	flagSet.IntVar(&maxVoices, "voices", DEFAULT_MAX_VOICES, "Polyphony (fixed at startup)")
	flagSet.StringVar(&patchesDir, "patches", "patches", "Preset directory")
	flagSet.IntVar(&program, "program", 1, "Initial program number")
	flagSet.StringVar(&mappingPath, "mapping", "", "Lua CC mapping script")
	flagSet.StringVar(&telemetryPath, "telemetry", "", "Write JSON-lines telemetry to a file")

	flagSet.Usage = func() {
		flagSet.SetOutput(os.Stdout)
		fmt.Println("Usage: pressence [-list] [-midi hw:1,0,0 | -port name | -keyboard | -arp | -gui]")
		fmt.Println("                 [-backend oto|alsa] [-wav out.wav -seconds 5 [-bytes file]]")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			flagSet.Usage()
			os.Exit(0)
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if showFeatures {
		printFeatures()
		return
	}

	boilerPlate()

	if listDevices {
		fmt.Println("ALSA raw MIDI inputs:")
		devices := ListMidiDevices()
		if len(devices) == 0 {
			fmt.Println("  (none found)")
		}
		for i, dev := range devices {
			fmt.Printf("  [%d] %s - %s\n", i, dev.Name, dev.Description)
		}
		fmt.Println("rtmidi input ports:")
		ports := ListGomidiPorts()
		if len(ports) == 0 {
			fmt.Println("  (none found)")
		}
		for i, port := range ports {
			fmt.Printf("  [%d] %s\n", i, port)
		}
		return
	}

	if listenChannel < 0 || listenChannel > 15 {
		fmt.Println("Error: -channel must be 0..15")
		os.Exit(1)
	}
	if maxVoices < 1 || maxVoices > 64 {
		fmt.Println("Error: -voices must be 1..64")
		os.Exit(1)
	}

	var telemetry TelemetrySink[AudioStats]
	if telemetryPath != "" {
		f, err := os.Create(telemetryPath)
		if err != nil {
			fmt.Printf("Error: telemetry file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		telemetry = NewJSONTelemetrySink[AudioStats](f)
	}

	engine := NewEngine(EngineConfig{
		SampleRate:     DEFAULT_SAMPLE_RATE,
		Channels:       DEFAULT_CHANNELS,
		MaxVoices:      maxVoices,
		ListenChannel:  uint8(listenChannel),
		InitialProgram: uint8(program),
		Storage:        NewFilesystemProgramStorage(patchesDir),
		Telemetry:      telemetry,
	})

	if mappingPath != "" {
		if err := ApplyCCMappingScript(engine, mappingPath); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("CC mapping loaded from %s\n", mappingPath)
	}

	if useClipboard {
		if err := engine.Clipboard().StartSystemSync(); err != nil {
			fmt.Printf("%v\n", err)
		}
	}

	// Offline render path: no realtime sink, no signal loop.
	if wavPath != "" {
		if bytesPath != "" {
			data, err := os.ReadFile(bytesPath)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(1)
			}
			for _, b := range data {
				engine.ProcessMidiByte(b)
			}
		}
		ring := NewMidiRingBuffer()
		engine.SetMidiInput(NewRingMidiInput(ring, "offline"))
		var arp *Arpeggiator
		if useArp {
			arp = NewArpeggiator(ring)
			arp.Start()
		}
		engine.Start()
		fmt.Printf("Rendering %.1fs to %s...\n", wavSeconds, wavPath)
		err := NewWavRenderer(engine, wavPath).Render(wavSeconds)
		if arp != nil {
			arp.Stop()
		}
		engine.Stop()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Done.")
		return
	}

	// Realtime path: pick the MIDI byte source.
	var (
		midiIn   MidiInput
		keyboard *TerminalKeyboard
		arp      *Arpeggiator
		guiRing  *MidiRingBuffer
		err      error
	)
	switch {
	case useKeyboard:
		keyboard, err = NewTerminalKeyboard(NoTelemetrySink[KeyScanStats]{})
		if err == nil {
			midiIn = keyboard
		}
	case useGUI:
		guiRing = NewMidiRingBuffer()
		midiIn = NewRingMidiInput(guiRing, "gui keyboard")
	case useArp:
		ring := NewMidiRingBuffer()
		arp = NewArpeggiator(ring)
		midiIn = NewRingMidiInput(ring, "arpeggiator")
	case midiDevice != "":
		midiIn, err = NewAlsaMidiIn(midiDevice)
	default:
		midiIn, err = NewGomidiIn(midiPort)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	engine.SetMidiInput(midiIn)
	fmt.Printf("MIDI input: %s\n", midiIn.Name())

	backend := AUDIO_BACKEND_OTO
	if backendName == "alsa" {
		backend = AUDIO_BACKEND_ALSA
	}
	sink, err := NewAudioSink(backend, engine)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	engine.Start()
	if err := sink.Start(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if arp != nil {
		arp.Start()
	}

	fmt.Printf("Audio: %d Hz, %d channels, %d voices, listen channel %d\n",
		engine.SampleRate(), engine.Channels(), maxVoices, listenChannel)
	fmt.Println("Playing. Ctrl+C to stop.")

	if useGUI {
		// ebiten owns the main goroutine until the window closes.
		if err := RunKeyboardGUI(engine, guiRing); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	} else {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		if keyboard != nil {
			select {
			case <-sig:
			case <-keyboard.Done():
			}
		} else {
			<-sig
		}
	}

	fmt.Println("\nShutting down...")
	if arp != nil {
		arp.Stop()
	}
	sink.Stop()
	sink.Close()
	engine.Stop()
	fmt.Println("Playback stopped.")
}

//go:build linux && !headless

// midi_backend_alsa.go - ALSA raw MIDI input with device enumeration

/*
░█▀█░█▀▄░█▀▀░█▀▀░█▀▀░█▀▀░█▀█░█▀▀░█▀▀
░█▀▀░█▀▄░█▀▀░▀▀█░▀▀█░█▀▀░█░█░█░░░█▀▀
░▀░░░▀░▀░▀▀▀░▀▀▀░▀▀▀░▀▀▀░▀░▀░▀▀▀░▀▀▀

Pressence - a polyphonic subtractive MIDI synthesizer
https://github.com/pressence/pressence
License: GPLv3 or later
*/

package main

/*
#cgo LDFLAGS: -lasound
#include <alsa/asoundlib.h>
#include <stdlib.h>

static int openRawMidi(snd_rawmidi_t** handle, const char* device) {
    return snd_rawmidi_open(handle, NULL, device, SND_RAWMIDI_NONBLOCK);
}

static int readRawMidi(snd_rawmidi_t* handle, unsigned char* buf, int len) {
    ssize_t n = snd_rawmidi_read(handle, buf, len);
    return (int)n;
}
*/
import "C"
import (
	"fmt"
	"unsafe"
)

func init() {
	compiledFeatures = append(compiledFeatures, "midi:alsa")
}

// MidiDeviceInfo describes one available raw MIDI input.
type MidiDeviceInfo struct {
	Name        string // ALSA device name, e.g. "hw:2,0,0"
	Description string
}

// ListMidiDevices enumerates raw MIDI input subdevices across all sound
// cards.
func ListMidiDevices() []MidiDeviceInfo {
	var devices []MidiDeviceInfo

	card := C.int(-1)
	for C.snd_card_next(&card) >= 0 && card >= 0 {
		ctlName := C.CString(fmt.Sprintf("hw:%d", card))
		var ctl *C.snd_ctl_t
		opened := C.snd_ctl_open(&ctl, ctlName, 0) >= 0
		C.free(unsafe.Pointer(ctlName))
		if !opened {
			continue
		}

		device := C.int(-1)
		for C.snd_ctl_rawmidi_next_device(ctl, &device) >= 0 && device >= 0 {
			var info *C.snd_rawmidi_info_t
			if C.snd_rawmidi_info_malloc(&info) < 0 {
				continue
			}
			C.snd_rawmidi_info_set_device(info, C.uint(device))
			C.snd_rawmidi_info_set_stream(info, C.SND_RAWMIDI_STREAM_INPUT)

			for sub := 0; ; sub++ {
				C.snd_rawmidi_info_set_subdevice(info, C.uint(sub))
				if C.snd_ctl_rawmidi_info(ctl, info) < 0 {
					break
				}
				devices = append(devices, MidiDeviceInfo{
					Name:        fmt.Sprintf("hw:%d,%d,%d", card, device, sub),
					Description: C.GoString(C.snd_rawmidi_info_get_name(info)),
				})
			}
			C.snd_rawmidi_info_free(info)
		}
		C.snd_ctl_close(ctl)
	}

	return devices
}

// AlsaMidiIn reads raw MIDI bytes from an ALSA device in non-blocking
// mode. Poll is called from the audio loop and returns immediately when
// no data is pending.
type AlsaMidiIn struct {
	handle  *C.snd_rawmidi_t
	name    string
	readBuf [256]byte
}

func NewAlsaMidiIn(deviceName string) (*AlsaMidiIn, error) {
	if deviceName == "" {
		devices := ListMidiDevices()
		if len(devices) == 0 {
			return nil, fmt.Errorf("no MIDI input devices found")
		}
		deviceName = devices[0].Name
	}

	cname := C.CString(deviceName)
	defer C.free(unsafe.Pointer(cname))

	var handle *C.snd_rawmidi_t
	if err := C.openRawMidi(&handle, cname); err < 0 {
		return nil, fmt.Errorf("cannot open MIDI device %s: %s",
			deviceName, C.GoString(C.snd_strerror(err)))
	}

	return &AlsaMidiIn{handle: handle, name: deviceName}, nil
}

func (m *AlsaMidiIn) Poll(fn func(byte)) int {
	total := 0
	for {
		n := C.readRawMidi(m.handle, (*C.uchar)(unsafe.Pointer(&m.readBuf[0])), C.int(len(m.readBuf)))
		if n <= 0 {
			// -EAGAIN: nothing pending, which is the common case.
			return total
		}
		for i := 0; i < int(n); i++ {
			fn(m.readBuf[i])
		}
		total += int(n)
	}
}

func (m *AlsaMidiIn) Name() string {
	return m.name
}

func (m *AlsaMidiIn) Close() error {
	if m.handle != nil {
		C.snd_rawmidi_close(m.handle)
		m.handle = nil
	}
	return nil
}

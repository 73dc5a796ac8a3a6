package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// Device summarises one host audio device.
type Device struct {
	Name       string
	Inputs     int
	Outputs    int
	SampleRate float64
	Default    bool
}

// Devices lists the host audio devices, marking the defaults.
func Devices() ([]Device, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	var defIn, defOut string
	if d, err := portaudio.DefaultInputDevice(); err == nil {
		defIn = d.Name
	}
	if d, err := portaudio.DefaultOutputDevice(); err == nil {
		defOut = d.Name
	}

	out := make([]Device, 0, len(devices))
	for _, d := range devices {
		out = append(out, Device{
			Name:       d.Name,
			Inputs:     d.MaxInputChannels,
			Outputs:    d.MaxOutputChannels,
			SampleRate: d.DefaultSampleRate,
			Default:    d.Name == defIn || d.Name == defOut,
		})
	}
	return out, nil
}

// String renders one device line for the CLI.
func (d Device) String() string {
	mark := ""
	if d.Default {
		mark = " *"
	}
	return fmt.Sprintf("%s (in:%d out:%d rate:%.0f)%s", d.Name, d.Inputs, d.Outputs, d.SampleRate, mark)
}

package main

import (
	"fmt"
	"strings"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

// MIDI control mapping: a sustain-style pedal on CC64 is the
// footswitch; mod wheel, expression and channel volume drive the three
// knobs.
const (
	ccLoopKnob   = 1  // mod wheel
	ccVolumeKnob = 7  // channel volume
	ccFadeKnob   = 11 // expression
	ccFootswitch = 64 // sustain pedal
)

// startMIDI connects the first input port whose name contains name and
// routes its control changes into the footswitch and knobs. The
// returned stop function detaches the listener and closes the driver.
func startMIDI(name string, sw *footswitch, k *knobs) (func(), error) {
	var in drivers.In
	for _, port := range gomidi.GetInPorts() {
		if strings.Contains(strings.ToLower(port.String()), strings.ToLower(name)) {
			in = port
			break
		}
	}
	if in == nil {
		gomidi.CloseDriver()
		return nil, fmt.Errorf("MIDI input %q not found (available: %s)", name, gomidi.GetInPorts())
	}

	stop, err := gomidi.ListenTo(in, func(msg gomidi.Message, timestampms int32) {
		var channel, cc, value uint8
		if !msg.GetControlChange(&channel, &cc, &value) {
			return
		}
		switch cc {
		case ccFootswitch:
			sw.Set(value >= 64)
		case ccLoopKnob:
			_, fade, vol := k.Get()
			k.Set(float64(value)/127, fade, vol)
		case ccFadeKnob:
			loop, _, vol := k.Get()
			k.Set(loop, float64(value)/127, vol)
		case ccVolumeKnob:
			loop, fade, _ := k.Get()
			k.Set(loop, fade, float64(value)/127)
		}
	})
	if err != nil {
		gomidi.CloseDriver()
		return nil, fmt.Errorf("MIDI listen: %w", err)
	}
	fmt.Printf("MIDI control on %q\n", in)
	return func() {
		stop()
		gomidi.CloseDriver()
	}, nil
}

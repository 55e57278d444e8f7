package capture

import (
	"fmt"
	"strings"

	"github.com/gordonklaus/portaudio"

	apperrors "github.com/meetpilot/meetpilot/internal/errors"
)

// monitorKeywords identify output-monitor / loopback devices across
// platforms (PulseAudio monitors, BlackHole, VB-Cable, Soundflower).
var monitorKeywords = []string{"monitor", "loopback", "blackhole", "vb-cable", "soundflower", "virtual"}

// DeviceInfo describes an input-capable audio device.
type DeviceInfo struct {
	Index      int
	Name       string
	Channels   int
	SampleRate float64
	Monitor    bool
}

// ListDevices enumerates input-capable devices. Callers own portaudio
// initialization around this.
func ListDevices() ([]DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}

	var out []DeviceInfo
	for i, dev := range devices {
		if dev.MaxInputChannels < 1 {
			continue
		}
		out = append(out, DeviceInfo{
			Index:      i,
			Name:       dev.Name,
			Channels:   dev.MaxInputChannels,
			SampleRate: dev.DefaultSampleRate,
			Monitor:    isMonitor(dev.Name),
		})
	}
	return out, nil
}

// findDevice resolves the capture device: explicit hint first, then the
// first monitor/loopback device, then the default input.
func findDevice(hint string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.DeviceLost, "enumerate devices")
	}

	if hint != "" {
		for _, dev := range devices {
			if dev.MaxInputChannels > 0 && containsFold(dev.Name, hint) {
				return dev, nil
			}
		}
		return nil, apperrors.Newf(apperrors.DeviceLost, "no input device matching %q", hint)
	}

	for _, dev := range devices {
		if dev.MaxInputChannels > 0 && isMonitor(dev.Name) {
			return dev, nil
		}
	}

	if dev, err := portaudio.DefaultInputDevice(); err == nil && dev != nil {
		return dev, nil
	}

	for _, dev := range devices {
		if dev.MaxInputChannels > 0 {
			return dev, nil
		}
	}
	return nil, apperrors.New(apperrors.DeviceLost, "no input-capable audio device found")
}

func isMonitor(name string) bool {
	for _, kw := range monitorKeywords {
		if containsFold(name, kw) {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

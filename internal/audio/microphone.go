// Package audio inspects PulseAudio sources so diagnostics can tell whether
// speech recognition has a usable microphone.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// ErrNoMicrophone is returned when the server reports no input sources.
var ErrNoMicrophone = errors.New("no microphone found")

// Microphone describes one Pulse input source.
type Microphone struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Microphones lists Pulse input sources, monitors of output sinks excluded.
func Microphones(_ context.Context) ([]Microphone, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("voicemail"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}
	defaultID := defaultSource.ID()

	var infos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &infos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	mics := make([]Microphone, 0, len(infos))
	for _, source := range infos {
		if source == nil || isMonitor(source.SourceName) {
			continue
		}
		mics = append(mics, Microphone{
			ID:          source.SourceName,
			Description: source.Device,
			State:       sourceStateString(source.State),
			Available:   sourceAvailable(source),
			Muted:       source.Mute,
			Default:     source.SourceName == defaultID,
		})
	}
	return mics, nil
}

// Usable picks the default microphone and reports why it cannot hear the user.
func Usable(mics []Microphone) (Microphone, error) {
	if len(mics) == 0 {
		return Microphone{}, ErrNoMicrophone
	}

	chosen := mics[0]
	for _, mic := range mics {
		if mic.Default {
			chosen = mic
			break
		}
	}

	switch {
	case !chosen.Available:
		return chosen, fmt.Errorf("microphone %q is not available", chosen.ID)
	case chosen.Muted:
		return chosen, fmt.Errorf("microphone %q is muted", chosen.ID)
	}
	return chosen, nil
}

func isMonitor(name string) bool {
	return strings.HasSuffix(name, ".monitor")
}

// sourceStateString maps Pulse source state constants to human-readable values.
func sourceStateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// sourceAvailable maps Pulse source port availability to a simple boolean.
func sourceAvailable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	if len(source.Ports) == 0 {
		return true
	}
	for _, port := range source.Ports {
		if port.Name != source.ActivePortName {
			continue
		}
		// PulseAudio values: unknown=0, no=1, yes=2.
		return port.Available == 0 || port.Available == 2
	}
	return true
}

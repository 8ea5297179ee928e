package audio

import (
	"context"
	"reflect"
	"testing"

	pulseproto "github.com/jfreymuth/pulse/proto"
	"github.com/stretchr/testify/require"
)

func TestUsable(t *testing.T) {
	tests := []struct {
		name    string
		mics    []Microphone
		wantID  string
		wantErr string
	}{
		{name: "none", wantErr: "no microphone found"},
		{
			name: "default wins",
			mics: []Microphone{
				{ID: "usb", Available: true},
				{ID: "builtin", Available: true, Default: true},
			},
			wantID: "builtin",
		},
		{
			name:   "first without default",
			mics:   []Microphone{{ID: "usb", Available: true}, {ID: "builtin", Available: true}},
			wantID: "usb",
		},
		{
			name:    "muted default",
			mics:    []Microphone{{ID: "headset", Available: true, Muted: true, Default: true}},
			wantID:  "headset",
			wantErr: "muted",
		},
		{
			name:    "unplugged default",
			mics:    []Microphone{{ID: "headset", Default: true}},
			wantID:  "headset",
			wantErr: "not available",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mic, err := Usable(tc.mics)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tc.wantID, mic.ID)
		})
	}
}

func TestMicrophonesFailsWhenPulseUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	_, err := Microphones(context.Background())
	require.Error(t, err)
}

func TestIsMonitor(t *testing.T) {
	require.True(t, isMonitor("alsa_output.pci.analog-stereo.monitor"))
	require.False(t, isMonitor("alsa_input.usb-mic"))
}

func TestSourceStateString(t *testing.T) {
	require.Equal(t, "running", sourceStateString(0))
	require.Equal(t, "idle", sourceStateString(1))
	require.Equal(t, "suspended", sourceStateString(2))
	require.Equal(t, "unknown(99)", sourceStateString(99))
}

func TestSourceAvailable(t *testing.T) {
	require.False(t, sourceAvailable(nil))
	require.True(t, sourceAvailable(&pulseproto.GetSourceInfoReply{}))

	plugged := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setSourcePorts(t, plugged, []sourcePort{{name: "mic", available: 2}})
	require.True(t, sourceAvailable(plugged))

	unplugged := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setSourcePorts(t, unplugged, []sourcePort{{name: "mic", available: 1}})
	require.False(t, sourceAvailable(unplugged))
}

type sourcePort struct {
	name      string
	available uint32
}

func setSourcePorts(t *testing.T, reply *pulseproto.GetSourceInfoReply, ports []sourcePort) {
	t.Helper()

	sliceType := reflect.TypeOf(reply.Ports)
	sliceValue := reflect.MakeSlice(sliceType, len(ports), len(ports))
	for i, port := range ports {
		item := sliceValue.Index(i)
		item.FieldByName("Name").SetString(port.name)
		item.FieldByName("Available").SetUint(uint64(port.available))
	}
	reflect.ValueOf(reply).Elem().FieldByName("Ports").Set(sliceValue)
}

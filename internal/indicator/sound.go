package indicator

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/LokeshkumarVD/Voice-email-system/internal/config"
	"github.com/jfreymuth/pulse"
)

type cueKind int

const (
	cueListen cueKind = iota + 1
	cueAccept
	cueReject
)

var cueNames = map[cueKind]string{cueListen: "listen", cueAccept: "accept", cueReject: "reject"}

func (k cueKind) String() string {
	if name, ok := cueNames[k]; ok {
		return name
	}
	return "unknown"
}

const (
	cueSampleRate = 16000
	cueGap        = 22 * time.Millisecond
	cueFade       = 5 * time.Millisecond
	cueFileLimit  = 4 * time.Second
)

// tone is one sine segment of a cue.
type tone struct {
	hz     float64
	length time.Duration
	gain   float64
}

// Listen and accept rise, reject falls.
var cueTones = map[cueKind][]tone{
	cueListen: {{hz: 880, length: 60 * time.Millisecond, gain: 0.16}, {hz: 1175, length: 60 * time.Millisecond, gain: 0.16}},
	cueAccept: {{hz: 740, length: 65 * time.Millisecond, gain: 0.18}, {hz: 988, length: 90 * time.Millisecond, gain: 0.18}},
	cueReject: {{hz: 480, length: 75 * time.Millisecond, gain: 0.18}, {hz: 360, length: 110 * time.Millisecond, gain: 0.18}},
}

var cuePCM = func() map[cueKind][]int16 {
	rendered := make(map[cueKind][]int16, len(cueTones))
	for kind, tones := range cueTones {
		rendered[kind] = renderCue(tones)
	}
	return rendered
}()

func cueSamples(kind cueKind) []int16 { return cuePCM[kind] }

// emitCue plays the configured file for kind and falls back to the
// synthesized tones when there is none or it fails to play.
func emitCue(kind cueKind, cfg config.IndicatorConfig) error {
	if path := cuePath(kind, cfg); path != "" && playCueFile(path) == nil {
		return nil
	}
	samples := cueSamples(kind)
	if len(samples) == 0 {
		return nil
	}
	return playSamples(samples, kind)
}

func cuePath(kind cueKind, cfg config.IndicatorConfig) string {
	files := map[cueKind]string{
		cueListen: cfg.SoundListenFile,
		cueAccept: cfg.SoundAcceptFile,
		cueReject: cfg.SoundRejectFile,
	}
	return expandUserPath(files[kind])
}

func expandUserPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw != "~" && !strings.HasPrefix(raw, "~/") {
		return raw
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return raw
	}
	return filepath.Join(home, strings.TrimPrefix(raw[1:], "/"))
}

func playCueFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("stat cue file %q: %w", path, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), cueFileLimit)
	defer cancel()

	if err := exec.CommandContext(ctx, "paplay", "--client-name=voicemail", path).Run(); err != nil {
		return fmt.Errorf("play cue file %q: %w", path, err)
	}
	return nil
}

// pcmSource hands a fixed buffer to a pulse playback stream.
type pcmSource struct {
	samples []int16
	pos     int
}

func (p *pcmSource) read(buf []int16) (int, error) {
	n := copy(buf, p.samples[p.pos:])
	p.pos += n
	if p.pos >= len(p.samples) {
		return n, pulse.EndOfData
	}
	return n, nil
}

func playSamples(samples []int16, kind cueKind) error {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("voicemail"),
		pulse.ClientApplicationIconName("mail-send"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	src := &pcmSource{samples: samples}
	stream, err := client.NewPlayback(
		pulse.Int16Reader(src.read),
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueSampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("voicemail "+kind.String()+" cue"),
	)
	if err != nil {
		return fmt.Errorf("open %s cue stream: %w", kind, err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play %s cue: %w", kind, err)
	}
	return nil
}

// renderCue joins the tones with short silences.
func renderCue(tones []tone) []int16 {
	var pcm []int16
	gap := make([]int16, sampleCount(cueGap))
	for i, t := range tones {
		if i > 0 {
			pcm = append(pcm, gap...)
		}
		pcm = append(pcm, t.render()...)
	}
	return pcm
}

// render synthesizes the tone with raised-cosine fades at both ends.
func (t tone) render() []int16 {
	n := sampleCount(t.length)
	if n == 0 || t.hz <= 0 || t.gain <= 0 {
		return nil
	}
	fade := min(sampleCount(cueFade), n/2)

	pcm := make([]int16, n)
	for i := range pcm {
		env := 1.0
		if edge := min(i, n-1-i); edge < fade {
			env = 0.5 - 0.5*math.Cos(math.Pi*float64(edge)/float64(fade))
		}
		phase := 2 * math.Pi * t.hz * float64(i) / cueSampleRate
		pcm[i] = int16(math.Round(math.Sin(phase) * t.gain * env * math.MaxInt16))
	}
	return pcm
}

func sampleCount(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}

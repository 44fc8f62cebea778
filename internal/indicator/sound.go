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

	"github.com/jfreymuth/pulse"
	"github.com/rbright/signcast/internal/config"
)

type cueKind int

const (
	cueSend cueKind = iota + 1
	cueComplete
	cueFail
	cueClear
)

const (
	cueSampleRate = 16000
	cueGap        = 22 * time.Millisecond
	cueFade       = 5 * time.Millisecond
)

type toneSpec struct {
	frequencyHz float64
	duration    time.Duration
	volume      float64
}

// cue pairs a synthesized fallback with the config field that may override it.
type cue struct {
	tones []toneSpec
	file  func(config.IndicatorConfig) string
}

var cues = map[cueKind]cue{
	cueSend: {
		tones: []toneSpec{{frequencyHz: 660, duration: 50 * time.Millisecond, volume: 0.16}, {frequencyHz: 880, duration: 50 * time.Millisecond, volume: 0.16}},
		file:  func(c config.IndicatorConfig) string { return c.SoundSendFile },
	},
	cueComplete: {
		tones: []toneSpec{{frequencyHz: 784, duration: 70 * time.Millisecond, volume: 0.18}, {frequencyHz: 1046, duration: 90 * time.Millisecond, volume: 0.18}},
		file:  func(c config.IndicatorConfig) string { return c.SoundCompleteFile },
	},
	cueFail: {
		tones: []toneSpec{{frequencyHz: 440, duration: 80 * time.Millisecond, volume: 0.18}, {frequencyHz: 330, duration: 100 * time.Millisecond, volume: 0.18}},
		file:  func(c config.IndicatorConfig) string { return c.SoundFailFile },
	},
	cueClear: {
		tones: []toneSpec{{frequencyHz: 587, duration: 110 * time.Millisecond, volume: 0.16}},
		file:  func(c config.IndicatorConfig) string { return c.SoundClearFile },
	},
}

var cuePCM = func() map[cueKind][]int16 {
	out := make(map[cueKind][]int16, len(cues))
	for kind, c := range cues {
		out[kind] = synthesizeCue(c.tones)
	}
	return out
}()

// emitCue plays the configured cue file when one is set and playable,
// otherwise the synthesized tone for kind.
func emitCue(ctx context.Context, kind cueKind, cfg config.IndicatorConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path := cuePath(kind, cfg); path != "" && playCueFile(ctx, path) == nil {
		return nil
	}
	if samples := cuePCM[kind]; len(samples) > 0 {
		return playPCM(samples)
	}
	return nil
}

func cuePath(kind cueKind, cfg config.IndicatorConfig) string {
	c, ok := cues[kind]
	if !ok {
		return ""
	}
	return expandUserPath(c.file(cfg))
}

func expandUserPath(raw string) string {
	raw = strings.TrimSpace(raw)
	rest, ok := strings.CutPrefix(raw, "~")
	if !ok || (rest != "" && rest[0] != '/') {
		return raw
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return raw
	}
	return filepath.Join(home, rest)
}

func playCueFile(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("stat cue file %q: %w", path, err)
	}
	if err := exec.CommandContext(ctx, "pw-play", "--media-role", "Notification", path).Run(); err != nil {
		return fmt.Errorf("play cue file %q: %w", path, err)
	}
	return nil
}

// pcmCursor feeds a fixed sample buffer to a pulse playback stream.
type pcmCursor struct {
	samples []int16
	pos     int
}

func (c *pcmCursor) read(buf []int16) (int, error) {
	n := copy(buf, c.samples[c.pos:])
	c.pos += n
	if c.pos >= len(c.samples) {
		return n, pulse.EndOfData
	}
	return n, nil
}

func playPCM(samples []int16) error {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("signcast"),
		pulse.ClientApplicationIconName("camera-web"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	cursor := &pcmCursor{samples: samples}
	stream, err := client.NewPlayback(
		pulse.Int16Reader(cursor.read),
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueSampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("signcast cue"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play cue stream: %w", err)
	}
	return nil
}

func synthesizeCue(tones []toneSpec) []int16 {
	var pcm []int16
	for i, tone := range tones {
		if i > 0 {
			pcm = append(pcm, make([]int16, samplesFor(cueGap))...)
		}
		pcm = append(pcm, synthesizeTone(tone)...)
	}
	return pcm
}

// synthesizeTone renders a sine with raised-cosine fades at both ends.
func synthesizeTone(spec toneSpec) []int16 {
	n := samplesFor(spec.duration)
	if n <= 0 || spec.frequencyHz <= 0 || spec.volume <= 0 {
		return nil
	}
	fade := min(samplesFor(cueFade), n/2)

	pcm := make([]int16, n)
	step := 2 * math.Pi * spec.frequencyHz / cueSampleRate
	for i := range pcm {
		gain := spec.volume * fadeGain(i, n, fade)
		pcm[i] = int16(math.Round(math.Sin(step*float64(i)) * gain * math.MaxInt16))
	}
	return pcm
}

func fadeGain(i, n, fade int) float64 {
	edge := min(i, n-1-i)
	if fade <= 0 || edge >= fade {
		return 1
	}
	return 0.5 - 0.5*math.Cos(math.Pi*float64(edge)/float64(fade))
}

func samplesFor(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}

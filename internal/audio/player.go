package audio

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
)

// speakerLatency is the speaker buffer length.
const speakerLatency = 100 * time.Millisecond

// output renders a stream and returns once it has finished or ctx is done.
type output interface {
	play(ctx context.Context, format beep.Format, s beep.Streamer) error
}

// Player plays a decoded sound at a chosen volume.
type Player struct {
	sound *beep.Buffer
	out   output
}

// NewPlayer decodes WAV data and prepares it for the system speaker.
func NewPlayer(data []byte) (*Player, error) {
	streamer, format, err := wav.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	defer streamer.Close()

	sound := beep.NewBuffer(format)
	sound.Append(streamer)

	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("read wav: %w", err)
	}

	return newPlayer(sound, new(speakerOutput)), nil
}

func newPlayer(sound *beep.Buffer, out output) *Player {
	return &Player{sound: sound, out: out}
}

// Duration returns the length of one play.
func (p *Player) Duration() time.Duration {
	return p.sound.Format().SampleRate.D(p.sound.Len())
}

// Play plays the sound once at volume in [0, 1] and blocks until it ends or ctx is done.
func (p *Player) Play(ctx context.Context, volume float64) error {
	return p.out.play(ctx, p.sound.Format(), withVolume(p.sound.Streamer(0, p.sound.Len()), volume))
}

// withVolume scales s linearly so that volume 1 leaves it unchanged.
func withVolume(s beep.Streamer, volume float64) beep.Streamer {
	return &effects.Gain{
		Streamer: s,
		Gain:     volume - 1,
	}
}

// speakerOutput plays through the system speaker, initialised on first use.
type speakerOutput struct {
	once    sync.Once
	initErr error
}

func (o *speakerOutput) play(ctx context.Context, format beep.Format, s beep.Streamer) error {
	o.once.Do(func() {
		o.initErr = speaker.Init(format.SampleRate, format.SampleRate.N(speakerLatency))
	})

	if o.initErr != nil {
		return fmt.Errorf("init speaker: %w", o.initErr)
	}

	done := make(chan struct{})
	ctrl := &beep.Ctrl{Streamer: beep.Seq(s, beep.Callback(func() {
		close(done)
	}))}

	speaker.Play(ctrl)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Lock()
		ctrl.Streamer = nil
		speaker.Unlock()

		return ctx.Err()
	}
}

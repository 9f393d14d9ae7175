package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/antoniostano/reelstudio/internal/audio"
)

// Player starts rendering decoded audio. It stands in for the media element of a client.
type Player interface {
	Start(ctx context.Context, data []byte, mime string) (Media, error)
}

// Media is one started rendering. Done is closed on natural end and after Pause; the
// manager tells the two apart by generation, never by inspecting the channel.
type Media interface {
	Done() <-chan struct{}
	Pause()
}

// ClockPlayer validates audio with a decoder and ends each rendering after the decoded
// duration has elapsed on the wall clock.
type ClockPlayer struct{}

func (ClockPlayer) Start(ctx context.Context, data []byte, mime string) (Media, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := audio.Probe(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", mime, err)
	}
	if info.Duration <= 0 {
		return nil, fmt.Errorf("decode %s: zero-length audio", mime)
	}
	return newClockMedia(info.Duration), nil
}

type clockMedia struct {
	done  chan struct{}
	once  sync.Once
	timer *time.Timer
}

func newClockMedia(d time.Duration) *clockMedia {
	m := &clockMedia{done: make(chan struct{})}
	m.timer = time.AfterFunc(d, m.finish)
	return m
}

func (m *clockMedia) Done() <-chan struct{} { return m.done }

func (m *clockMedia) Pause() {
	m.timer.Stop()
	m.finish()
}

func (m *clockMedia) finish() {
	m.once.Do(func() { close(m.done) })
}

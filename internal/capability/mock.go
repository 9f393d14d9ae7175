package capability

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/antoniostano/reelstudio/internal/audio"
)

// MockScriptProvider returns a fixed-shape script for local development.
type MockScriptProvider struct{}

func (MockScriptProvider) Name() string { return "mock" }

func (MockScriptProvider) GenerateScript(ctx context.Context, req ScriptRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	niche := strings.ToLower(strings.TrimSpace(req.Niche))
	return fmt.Sprintf(
		"Stop scrolling. Most people get %s completely wrong, and it costs them every single day. "+
			"Here is the one trick nobody talks about: start small, stay consistent, and track everything for a week. "+
			"You will be shocked by what changes. Want the full breakdown? Check link in bio.",
		niche,
	), nil
}

// MockSpeechProvider renders a sine tone as long as the text would take to speak.
type MockSpeechProvider struct{}

func (MockSpeechProvider) Name() string { return "mock" }

func (MockSpeechProvider) Synthesize(ctx context.Context, text, voiceID string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	d := time.Duration(utf8.RuneCountInString(text)) * time.Second / 15
	if d < 500*time.Millisecond {
		d = 500 * time.Millisecond
	} else if d > 20*time.Second {
		d = 20 * time.Second
	}
	// Distinct voices get distinct pitches so previews are distinguishable.
	freq := 220.0 + float64(len(voiceID)%7)*40
	wav, err := audio.ToneWAV(d, 8000, freq)
	if err != nil {
		return nil, "", err
	}
	return wav, audio.MIMEWAV, nil
}

package audio

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
)

const (
	MIMEMPEG = "audio/mpeg"
	MIMEWAV  = "audio/wav"
)

var ErrUnknownFormat = errors.New("unrecognized audio container")

// Info is what a decoder could learn about a clip.
type Info struct {
	Format     string        `json:"format"`
	MIME       string        `json:"mime"`
	SampleRate int           `json:"sample_rate"`
	Duration   time.Duration `json:"duration"`
}

// SniffMIME guesses the container from leading bytes.
func SniffMIME(data []byte) string {
	switch {
	case isWAV(data):
		return MIMEWAV
	case isMP3(data):
		return MIMEMPEG
	default:
		return "application/octet-stream"
	}
}

// Probe decodes data far enough to measure its length. Unsupported or corrupt input
// returns an error, which the media element reports as a playback failure.
func Probe(data []byte) (Info, error) {
	if len(data) == 0 {
		return Info{}, fmt.Errorf("probe: empty buffer")
	}

	var (
		stream beep.StreamSeekCloser
		format beep.Format
		err    error
		info   Info
	)
	switch {
	case isWAV(data):
		stream, format, err = wav.Decode(bytes.NewReader(data))
		info = Info{Format: "wav", MIME: MIMEWAV}
	case isMP3(data):
		stream, format, err = mp3.Decode(readSeekNopCloser{bytes.NewReader(data)})
		info = Info{Format: "mp3", MIME: MIMEMPEG}
	default:
		return Info{}, fmt.Errorf("probe: %w", ErrUnknownFormat)
	}
	if err != nil {
		return Info{}, fmt.Errorf("probe %s: %w", info.Format, err)
	}
	defer stream.Close()

	info.SampleRate = int(format.SampleRate)
	info.Duration = format.SampleRate.D(stream.Len())
	return info, nil
}

// readSeekNopCloser keeps the reader seekable so the mp3 decoder can measure length.
type readSeekNopCloser struct {
	*bytes.Reader
}

func (readSeekNopCloser) Close() error { return nil }

func isWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

func isMP3(data []byte) bool {
	if len(data) >= 3 && string(data[0:3]) == "ID3" {
		return true
	}
	return len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0
}

package audio

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/antoniostano/reelstudio/internal/apperr"
)

func TestTransportRoundTrip(t *testing.T) {
	inputs := [][]byte{
		{0x00},
		[]byte("ID3 fake mp3 header"),
		bytes.Repeat([]byte{0xFF, 0xFB, 0x90, 0x00}, 257),
	}
	for _, in := range inputs {
		got, err := DecodeTransport(EncodeTransport(in))
		if err != nil {
			t.Fatalf("DecodeTransport() error = %v", err)
		}
		if !bytes.Equal(got, in) {
			t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(in))
		}
	}
}

func TestDecodeTransportToleratesLineBreaks(t *testing.T) {
	enc := EncodeTransport([]byte("hello audio world"))
	wrapped := enc[:8] + "\n" + enc[8:]
	got, err := DecodeTransport(wrapped)
	if err != nil {
		t.Fatalf("DecodeTransport() error = %v", err)
	}
	if string(got) != "hello audio world" {
		t.Fatalf("DecodeTransport() = %q", got)
	}
}

func TestDecodeTransportRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "   ", "not*base64!", "QUJD$"} {
		_, err := DecodeTransport(in)
		if !apperr.Is(err, apperr.KindMalformedData) {
			t.Fatalf("DecodeTransport(%q) error = %v, want malformed data", in, err)
		}
	}
}

func TestResourcesReleaseIsIdempotent(t *testing.T) {
	r := NewResources(time.Minute)
	released := 0
	r.SetReleaseHook(func(Resource) { released++ })

	h := r.Allocate("u1", []byte("abc"), "")
	if r.Live() != 1 {
		t.Fatalf("Live() = %d, want 1", r.Live())
	}
	if !r.Release(h) {
		t.Fatalf("first Release() = false, want true")
	}
	if r.Release(h) {
		t.Fatalf("second Release() = true, want false")
	}
	if released != 1 {
		t.Fatalf("release hook ran %d times, want 1", released)
	}
	if _, _, err := r.Open(h); !apperr.Is(err, apperr.KindUseAfterRelease) {
		t.Fatalf("Open() after release error = %v, want use after release", err)
	}
	if _, _, err := r.Open(Handle("never-issued")); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("Open(unknown) error = %v, want not found", err)
	}
}

func TestResourcesJanitorSkipsPinned(t *testing.T) {
	r := NewResources(20 * time.Millisecond)
	loose := r.Allocate("u1", []byte("a"), "")
	pinned := r.Allocate("u1", []byte("b"), "")
	if err := r.Pin(pinned); err != nil {
		t.Fatalf("Pin() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.StartJanitor(ctx, 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)

	if _, _, err := r.Open(loose); !apperr.Is(err, apperr.KindUseAfterRelease) {
		t.Fatalf("loose handle error = %v, want reclaimed", err)
	}
	if _, _, err := r.Open(pinned); err != nil {
		t.Fatalf("pinned handle error = %v, want live", err)
	}
}

func TestProbeWAVDuration(t *testing.T) {
	clip, err := ToneWAV(2*time.Second, 8000, 440)
	if err != nil {
		t.Fatalf("ToneWAV() error = %v", err)
	}
	if SniffMIME(clip) != MIMEWAV {
		t.Fatalf("SniffMIME() = %q, want %q", SniffMIME(clip), MIMEWAV)
	}
	info, err := Probe(clip)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if info.Format != "wav" || info.SampleRate != 8000 {
		t.Fatalf("unexpected info: %+v", info)
	}
	if info.Duration < 1900*time.Millisecond || info.Duration > 2100*time.Millisecond {
		t.Fatalf("Duration = %v, want ~2s", info.Duration)
	}
}

func TestProbeRejectsGarbage(t *testing.T) {
	if _, err := Probe([]byte("definitely not audio")); err == nil {
		t.Fatalf("Probe(garbage) error = nil, want error")
	}
	if _, err := Probe(nil); err == nil {
		t.Fatalf("Probe(nil) error = nil, want error")
	}
}

// silentMP3 builds MPEG-1 Layer III frames (128 kbps, 44.1 kHz, mono, no CRC) whose side
// info and main data are all zero, which decodes as silence.
func silentMP3(frames int) []byte {
	const frameLen = 144 * 128000 / 44100
	out := make([]byte, 0, frames*frameLen)
	for i := 0; i < frames; i++ {
		frame := make([]byte, frameLen)
		copy(frame, []byte{0xFF, 0xFB, 0x90, 0xC0})
		out = append(out, frame...)
	}
	return out
}

func TestMP3DurationFromFrames(t *testing.T) {
	clip := silentMP3(200)
	if SniffMIME(clip) != MIMEMPEG {
		t.Fatalf("SniffMIME() = %q, want %q", SniffMIME(clip), MIMEMPEG)
	}
	info, err := Probe(clip)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if info.Format != "mp3" || info.SampleRate != 44100 {
		t.Fatalf("unexpected info: %+v", info)
	}
	// 200 frames of 1152 samples at 44.1 kHz.
	want := time.Duration(float64(200*1152) / 44100 * float64(time.Second))
	if diff := info.Duration - want; diff < -50*time.Millisecond || diff > 50*time.Millisecond {
		t.Fatalf("Duration = %v, want ~%v", info.Duration, want)
	}
}

func TestAcquirePinsAgainstExpiry(t *testing.T) {
	r := NewResources(time.Nanosecond)
	h := r.Allocate("u1", []byte("clip"), "")
	data, meta, err := r.Acquire(h)
	if err != nil || string(data) != "clip" || meta.Handle != h {
		t.Fatalf("Acquire() = %q, %+v, %v", data, meta, err)
	}
	time.Sleep(time.Millisecond)
	r.reclaimExpired()
	if _, _, err := r.Open(h); err != nil {
		t.Fatalf("acquired handle reclaimed: %v", err)
	}

	if err := r.Unpin(h); err != nil {
		t.Fatalf("Unpin() error = %v", err)
	}
	r.reclaimExpired()
	if _, _, err := r.Acquire(h); !apperr.Is(err, apperr.KindUseAfterRelease) {
		t.Fatalf("Acquire() after expiry error = %v, want use after release", err)
	}
}

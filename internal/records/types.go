package records

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
	"unicode/utf16"
)

// ErrNotFound is returned by stores when no record matches the owner and id.
var ErrNotFound = errors.New("record not found")

// CharsPerSecond is the speaking rate used to estimate clip duration from source text.
const CharsPerSecond = 150

// ScriptArtifact is a persisted generated script.
type ScriptArtifact struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Niche     string    `json:"niche"`
	WordCount int       `json:"word_count"`
	CreatedAt time.Time `json:"created_at"`
}

// VoiceArtifact is a persisted synthesized clip. DurationSeconds is estimated from the
// source text length at CharsPerSecond, not measured from the audio.
type VoiceArtifact struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Title           string    `json:"title"`
	VoiceID         string    `json:"voice_id"`
	VoiceName       string    `json:"voice_name"`
	FileSize        int64     `json:"file_size"`
	DurationSeconds int       `json:"duration_seconds"`
	ScriptID        string    `json:"script_id,omitempty"`
	AudioKey        string    `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
}

// ScriptDraft is the caller-supplied shape of a script before it is saved.
type ScriptDraft struct {
	Title   string
	Content string
	Niche   string
}

// VoiceDraft is the caller-supplied shape of a voice clip before it is saved. Audio is
// the decoded buffer; its length becomes FileSize.
type VoiceDraft struct {
	Title      string
	VoiceID    string
	VoiceName  string
	SourceText string
	ScriptID   string
	Audio      []byte
	MIME       string
}

// UsageStatistics is computed on demand for one user.
type UsageStatistics struct {
	Scripts      int64   `json:"total_scripts"`
	VoiceClips   int64   `json:"total_voice_clips"`
	StorageBytes int64   `json:"storage_bytes"`
	StorageMB    float64 `json:"storage_used_mb"`
	Downloads    int64   `json:"total_downloads"`
}

// ListFilter narrows library listings. Query is a case-insensitive substring match on
// title and content (scripts) or title and voice name (clips).
type ListFilter struct {
	Query string
	Limit int
}

// Store is a keyed record store scoped by user id.
type Store interface {
	InsertScript(ctx context.Context, a ScriptArtifact) error
	InsertVoiceClip(ctx context.Context, a VoiceArtifact) error
	GetScript(ctx context.Context, userID, id string) (ScriptArtifact, error)
	GetVoiceClip(ctx context.Context, userID, id string) (VoiceArtifact, error)
	ListScripts(ctx context.Context, userID string, f ListFilter) ([]ScriptArtifact, error)
	ListVoiceClips(ctx context.Context, userID string, f ListFilter) ([]VoiceArtifact, error)
	DeleteScript(ctx context.Context, userID, id string) error
	// DeleteVoiceClip returns the removed record so its audio blob can be dropped.
	DeleteVoiceClip(ctx context.Context, userID, id string) (VoiceArtifact, error)
	CountScripts(ctx context.Context, userID string) (int64, error)
	CountVoiceClips(ctx context.Context, userID string) (int64, error)
	SumVoiceBytes(ctx context.Context, userID string) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// WordCount is the whitespace-delimited token count of s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// EstimateDurationSeconds approximates speech length from character count.
// Characters are UTF-16 code units, so a supplementary-plane rune such as an
// emoji counts as two, matching what the web client reports.
func EstimateDurationSeconds(text string) int {
	n := 0
	for _, r := range text {
		n += utf16.RuneLen(r)
	}
	if n == 0 {
		return 0
	}
	return int(math.Ceil(float64(n) / CharsPerSecond))
}

// NewStatistics derives the rounded megabyte and downloads fields.
func NewStatistics(scripts, clips, bytes int64) UsageStatistics {
	mb := float64(bytes) / (1024 * 1024)
	return UsageStatistics{
		Scripts:      scripts,
		VoiceClips:   clips,
		StorageBytes: bytes,
		StorageMB:    math.Round(mb*100) / 100,
		Downloads:    scripts + clips,
	}
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}

package records

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/antoniostano/reelstudio/internal/apperr"
)

type failingStore struct {
	*InMemoryStore
	failInsert bool
	failSum    bool
}

func (f *failingStore) InsertScript(ctx context.Context, a ScriptArtifact) error {
	if f.failInsert {
		return errors.New("db down")
	}
	return f.InMemoryStore.InsertScript(ctx, a)
}

func (f *failingStore) InsertVoiceClip(ctx context.Context, a VoiceArtifact) error {
	if f.failInsert {
		return errors.New("db down")
	}
	return f.InMemoryStore.InsertVoiceClip(ctx, a)
}

func (f *failingStore) SumVoiceBytes(ctx context.Context, userID string) (int64, error) {
	if f.failSum {
		return 0, errors.New("timeout")
	}
	return f.InMemoryStore.SumVoiceBytes(ctx, userID)
}

func TestSaveScriptRecomputesWordCount(t *testing.T) {
	b := NewBridge(NewInMemoryStore(), nil, nil)
	content := "Did you know " + strings.Repeat("word ", 42)
	a, err := b.SaveScript(context.Background(), "u1", ScriptDraft{Title: "t", Content: content, Niche: "Money Hacks"})
	if err != nil {
		t.Fatalf("SaveScript() error = %v", err)
	}
	if a.WordCount != 45 {
		t.Fatalf("WordCount = %d, want 45", a.WordCount)
	}
	if a.ID == "" || a.CreatedAt.IsZero() || a.UserID != "u1" {
		t.Fatalf("unexpected artifact: %+v", a)
	}
}

func TestSaveRequiresIdentityAndShape(t *testing.T) {
	b := NewBridge(NewInMemoryStore(), nil, nil)
	ctx := context.Background()

	if _, err := b.SaveScript(ctx, "", ScriptDraft{Title: "t", Content: "c", Niche: "n"}); !apperr.Is(err, apperr.KindUnauthenticated) {
		t.Fatalf("SaveScript(anon) error = %v, want unauthenticated", err)
	}
	if _, err := b.SaveScript(ctx, "u1", ScriptDraft{Title: "t", Content: "   ", Niche: "n"}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("SaveScript(blank) error = %v, want validation", err)
	}
	if _, err := b.SaveVoiceClip(ctx, "", VoiceDraft{Title: "t", VoiceID: "v", Audio: []byte{1}}); !apperr.Is(err, apperr.KindUnauthenticated) {
		t.Fatalf("SaveVoiceClip(anon) error = %v, want unauthenticated", err)
	}
	if _, err := b.SaveVoiceClip(ctx, "u1", VoiceDraft{Title: "t", VoiceID: "v"}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("SaveVoiceClip(no audio) error = %v, want validation", err)
	}
}

func TestSaveVoiceClipSizesFromBuffer(t *testing.T) {
	blobs := NewMemoryBlobStore()
	b := NewBridge(NewInMemoryStore(), blobs, nil)
	ctx := context.Background()
	audio := make([]byte, 4321)

	a, err := b.SaveVoiceClip(ctx, "u1", VoiceDraft{
		Title:      "Voice Clip - 1/2/2026",
		VoiceID:    "21m00Tcm4TlvDq8ikWAM",
		SourceText: strings.Repeat("x", 150),
		Audio:      audio,
	})
	if err != nil {
		t.Fatalf("SaveVoiceClip() error = %v", err)
	}
	if a.FileSize != 4321 || a.DurationSeconds != 1 {
		t.Fatalf("FileSize/Duration = %d/%d, want 4321/1", a.FileSize, a.DurationSeconds)
	}
	if a.VoiceName != "Unknown" {
		t.Fatalf("VoiceName = %q, want Unknown fallback", a.VoiceName)
	}

	data, ct, _, err := b.GetAudio(ctx, "u1", a.ID)
	if err != nil {
		t.Fatalf("GetAudio() error = %v", err)
	}
	if len(data) != 4321 || ct != "audio/mpeg" {
		t.Fatalf("GetAudio() = %d bytes %q", len(data), ct)
	}
	if _, _, _, err := b.GetAudio(ctx, "u2", a.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("GetAudio(other user) error = %v, want not found", err)
	}

	if err := b.DeleteVoiceClip(ctx, "u1", a.ID); err != nil {
		t.Fatalf("DeleteVoiceClip() error = %v", err)
	}
	if _, _, err := blobs.Get(ctx, a.AudioKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("blob after delete error = %v, want ErrNotFound", err)
	}
	if err := b.DeleteVoiceClip(ctx, "u1", a.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("second DeleteVoiceClip() error = %v, want not found", err)
	}
}

func TestPersistenceFailureDropsBlob(t *testing.T) {
	blobs := NewMemoryBlobStore()
	b := NewBridge(&failingStore{InMemoryStore: NewInMemoryStore(), failInsert: true}, blobs, nil)
	_, err := b.SaveVoiceClip(context.Background(), "u1", VoiceDraft{Title: "t", VoiceID: "v", Audio: []byte{1, 2}})
	if !apperr.Is(err, apperr.KindPersistence) {
		t.Fatalf("SaveVoiceClip() error = %v, want persistence", err)
	}
	if len(blobs.objects) != 0 {
		t.Fatalf("blobs = %d, want orphan removed", len(blobs.objects))
	}
}

func TestLoadStatistics(t *testing.T) {
	store := &failingStore{InMemoryStore: NewInMemoryStore()}
	b := NewBridge(store, nil, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := b.SaveScript(ctx, "u1", ScriptDraft{Title: "t", Content: "a b c", Niche: "Tech Facts"}); err != nil {
			t.Fatalf("SaveScript() error = %v", err)
		}
	}
	if _, err := b.SaveVoiceClip(ctx, "u1", VoiceDraft{Title: "t", VoiceID: "v", Audio: make([]byte, 1536*1024)}); err != nil {
		t.Fatalf("SaveVoiceClip() error = %v", err)
	}
	if _, err := b.SaveScript(ctx, "u2", ScriptDraft{Title: "t", Content: "other", Niche: "Tech Facts"}); err != nil {
		t.Fatalf("SaveScript(u2) error = %v", err)
	}

	stats, err := b.LoadStatistics(ctx, "u1")
	if err != nil {
		t.Fatalf("LoadStatistics() error = %v", err)
	}
	want := UsageStatistics{Scripts: 2, VoiceClips: 1, StorageBytes: 1536 * 1024, StorageMB: 1.5, Downloads: 3}
	if stats != want {
		t.Fatalf("LoadStatistics() = %+v, want %+v", stats, want)
	}

	store.failSum = true
	if _, err := b.LoadStatistics(ctx, "u1"); !apperr.Is(err, apperr.KindPersistence) {
		t.Fatalf("LoadStatistics(failing sum) error = %v, want persistence", err)
	}
}

func TestListNewestFirstWithSearch(t *testing.T) {
	b := NewBridge(NewInMemoryStore(), nil, nil)
	ctx := context.Background()
	for _, title := range []string{"Money tip", "Gym routine", "Money saver"} {
		if _, err := b.SaveScript(ctx, "u1", ScriptDraft{Title: title, Content: "body", Niche: "Life Tips"}); err != nil {
			t.Fatalf("SaveScript() error = %v", err)
		}
	}
	items, err := b.ListScripts(ctx, "u1", ListFilter{Query: "money"})
	if err != nil {
		t.Fatalf("ListScripts() error = %v", err)
	}
	if len(items) != 2 || items[0].Title != "Money saver" {
		t.Fatalf("ListScripts() = %+v", items)
	}
	if err := b.DeleteScript(ctx, "u2", items[0].ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("DeleteScript(other user) error = %v, want not found", err)
	}
}

func TestEstimateDurationSeconds(t *testing.T) {
	cases := map[string]int{"": 0, "a": 1, strings.Repeat("a", 150): 1, strings.Repeat("a", 151): 2}
	for in, want := range cases {
		if got := EstimateDurationSeconds(in); got != want {
			t.Fatalf("EstimateDurationSeconds(len %d) = %d, want %d", len(in), got, want)
		}
	}
}

func TestEstimateDurationCountsUTF16Units(t *testing.T) {
	// 75 emoji are 150 UTF-16 units; one more tips over the second.
	if got := EstimateDurationSeconds(strings.Repeat("\U0001F3AC", 75)); got != 1 {
		t.Fatalf("EstimateDurationSeconds(75 emoji) = %d, want 1", got)
	}
	if got := EstimateDurationSeconds(strings.Repeat("\U0001F3AC", 76)); got != 2 {
		t.Fatalf("EstimateDurationSeconds(76 emoji) = %d, want 2", got)
	}
	// BMP runes such as accented letters stay one unit each.
	if got := EstimateDurationSeconds(strings.Repeat("é", 150)); got != 1 {
		t.Fatalf("EstimateDurationSeconds(150 accented) = %d, want 1", got)
	}
}

func TestLikePatternEscapes(t *testing.T) {
	if got := likePattern(" 50%_off "); got != `%50\%\_off%` {
		t.Fatalf("likePattern() = %q", got)
	}
	if got := likePattern(""); got != "" {
		t.Fatalf("likePattern(empty) = %q", got)
	}
}

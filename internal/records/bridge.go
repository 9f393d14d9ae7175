package records

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/antoniostano/reelstudio/internal/apperr"
)

// Bridge validates artifact shapes and writes them to the store scoped to one user.
// Every returned error is an *apperr.Error.
type Bridge struct {
	store  Store
	blobs  BlobStore
	logger *zap.Logger
	now    func() time.Time
}

func NewBridge(store Store, blobs BlobStore, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	if blobs == nil {
		blobs = NewMemoryBlobStore()
	}
	return &Bridge{
		store:  store,
		blobs:  blobs,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (b *Bridge) SaveScript(ctx context.Context, userID string, d ScriptDraft) (ScriptArtifact, error) {
	if strings.TrimSpace(userID) == "" {
		return ScriptArtifact{}, apperr.Unauthenticated()
	}
	content := strings.TrimSpace(d.Content)
	title := strings.TrimSpace(d.Title)
	niche := strings.TrimSpace(d.Niche)
	switch {
	case content == "":
		return ScriptArtifact{}, apperr.Validation("script content is required")
	case title == "":
		return ScriptArtifact{}, apperr.Validation("script title is required")
	case niche == "":
		return ScriptArtifact{}, apperr.Validation("script niche is required")
	}

	a := ScriptArtifact{
		ID:        ulid.Make().String(),
		UserID:    userID,
		Title:     title,
		Content:   content,
		Niche:     niche,
		WordCount: WordCount(content),
		CreatedAt: b.now(),
	}
	if err := b.store.InsertScript(ctx, a); err != nil {
		return ScriptArtifact{}, apperr.Persistence("save script", err)
	}
	return a, nil
}

func (b *Bridge) SaveVoiceClip(ctx context.Context, userID string, d VoiceDraft) (VoiceArtifact, error) {
	if strings.TrimSpace(userID) == "" {
		return VoiceArtifact{}, apperr.Unauthenticated()
	}
	title := strings.TrimSpace(d.Title)
	voiceID := strings.TrimSpace(d.VoiceID)
	switch {
	case title == "":
		return VoiceArtifact{}, apperr.Validation("voice clip title is required")
	case voiceID == "":
		return VoiceArtifact{}, apperr.Validation("voice id is required")
	case len(d.Audio) == 0:
		return VoiceArtifact{}, apperr.Validation("voice clip audio is empty")
	}
	voiceName := strings.TrimSpace(d.VoiceName)
	if voiceName == "" {
		voiceName = "Unknown"
	}
	mime := d.MIME
	if mime == "" {
		mime = "audio/mpeg"
	}

	a := VoiceArtifact{
		ID:              ulid.Make().String(),
		UserID:          userID,
		Title:           title,
		VoiceID:         voiceID,
		VoiceName:       voiceName,
		FileSize:        int64(len(d.Audio)),
		DurationSeconds: EstimateDurationSeconds(d.SourceText),
		ScriptID:        strings.TrimSpace(d.ScriptID),
		CreatedAt:       b.now(),
	}
	a.AudioKey = AudioKey(userID, a.ID, mime)

	if err := b.blobs.Put(ctx, a.AudioKey, d.Audio, mime); err != nil {
		return VoiceArtifact{}, apperr.Persistence("store voice audio", err)
	}
	if err := b.store.InsertVoiceClip(ctx, a); err != nil {
		if derr := b.blobs.Delete(ctx, a.AudioKey); derr != nil {
			b.logger.Warn("orphaned voice audio", zap.String("key", a.AudioKey), zap.Error(derr))
		}
		return VoiceArtifact{}, apperr.Persistence("save voice clip", err)
	}
	return a, nil
}

func (b *Bridge) DeleteScript(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(userID) == "" {
		return apperr.Unauthenticated()
	}
	if err := b.store.DeleteScript(ctx, userID, id); err != nil {
		return storeError("delete script", "script", id, err)
	}
	return nil
}

func (b *Bridge) DeleteVoiceClip(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(userID) == "" {
		return apperr.Unauthenticated()
	}
	a, err := b.store.DeleteVoiceClip(ctx, userID, id)
	if err != nil {
		return storeError("delete voice clip", "voice clip", id, err)
	}
	if a.AudioKey != "" {
		if err := b.blobs.Delete(ctx, a.AudioKey); err != nil {
			b.logger.Warn("delete voice audio failed", zap.String("key", a.AudioKey), zap.Error(err))
		}
	}
	return nil
}

// LoadStatistics runs the count and sum aggregates. A failing sub-query fails the whole
// call so an outage is never reported as zero usage.
func (b *Bridge) LoadStatistics(ctx context.Context, userID string) (UsageStatistics, error) {
	if strings.TrimSpace(userID) == "" {
		return UsageStatistics{}, apperr.Unauthenticated()
	}
	scripts, err := b.store.CountScripts(ctx, userID)
	if err != nil {
		return UsageStatistics{}, apperr.Persistence("count scripts", err)
	}
	clips, err := b.store.CountVoiceClips(ctx, userID)
	if err != nil {
		return UsageStatistics{}, apperr.Persistence("count voice clips", err)
	}
	bytes, err := b.store.SumVoiceBytes(ctx, userID)
	if err != nil {
		return UsageStatistics{}, apperr.Persistence("sum storage", err)
	}
	return NewStatistics(scripts, clips, bytes), nil
}

func (b *Bridge) ListScripts(ctx context.Context, userID string, f ListFilter) ([]ScriptArtifact, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperr.Unauthenticated()
	}
	items, err := b.store.ListScripts(ctx, userID, f)
	if err != nil {
		return nil, apperr.Persistence("list scripts", err)
	}
	return items, nil
}

func (b *Bridge) ListVoiceClips(ctx context.Context, userID string, f ListFilter) ([]VoiceArtifact, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperr.Unauthenticated()
	}
	items, err := b.store.ListVoiceClips(ctx, userID, f)
	if err != nil {
		return nil, apperr.Persistence("list voice clips", err)
	}
	return items, nil
}

func (b *Bridge) GetScript(ctx context.Context, userID, id string) (ScriptArtifact, error) {
	if strings.TrimSpace(userID) == "" {
		return ScriptArtifact{}, apperr.Unauthenticated()
	}
	a, err := b.store.GetScript(ctx, userID, id)
	if err != nil {
		return ScriptArtifact{}, storeError("get script", "script", id, err)
	}
	return a, nil
}

func (b *Bridge) GetVoiceClip(ctx context.Context, userID, id string) (VoiceArtifact, error) {
	if strings.TrimSpace(userID) == "" {
		return VoiceArtifact{}, apperr.Unauthenticated()
	}
	a, err := b.store.GetVoiceClip(ctx, userID, id)
	if err != nil {
		return VoiceArtifact{}, storeError("get voice clip", "voice clip", id, err)
	}
	return a, nil
}

// GetAudio loads the stored audio of a clip owned by userID.
func (b *Bridge) GetAudio(ctx context.Context, userID, id string) ([]byte, string, VoiceArtifact, error) {
	a, err := b.GetVoiceClip(ctx, userID, id)
	if err != nil {
		return nil, "", VoiceArtifact{}, err
	}
	if a.AudioKey == "" {
		return nil, "", a, apperr.NotFound("voice audio", id)
	}
	data, contentType, err := b.blobs.Get(ctx, a.AudioKey)
	if err != nil {
		return nil, "", a, storeError("load voice audio", "voice audio", id, err)
	}
	return data, contentType, a, nil
}

func (b *Bridge) Ping(ctx context.Context) error {
	return b.store.Ping(ctx)
}

func storeError(op, what, id string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound(what, id)
	}
	return apperr.Persistence(op, err)
}

package studio

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/antoniostano/reelstudio/internal/apperr"
	"github.com/antoniostano/reelstudio/internal/audio"
	"github.com/antoniostano/reelstudio/internal/notify"
	"github.com/antoniostano/reelstudio/internal/playback"
	"github.com/antoniostano/reelstudio/internal/records"
)

const rachel = "21m00Tcm4TlvDq8ikWAM"

type fakeGenerator struct {
	script    string
	scriptErr error
	payload   string
	voiceErr  error
	block     chan struct{}
	calls     int
	mu        sync.Mutex
}

func (g *fakeGenerator) GenerateScript(ctx context.Context, _, _ string) (string, error) {
	g.mu.Lock()
	g.calls++
	block := g.block
	g.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return g.script, g.scriptErr
}

func (g *fakeGenerator) SynthesizeSpeech(context.Context, string, string) (string, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	return g.payload, g.voiceErr
}

type recordedNotice struct {
	user  string
	title string
	typ   notify.Type
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []recordedNotice
	signals []notify.EventKind
}

func (n *recordingNotifier) Publish(userID, title, message string, typ notify.Type) notify.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, recordedNotice{user: userID, title: title, typ: typ})
	return notify.Notice{Title: title, Message: message, Type: typ}
}

func (n *recordingNotifier) Signal(_ string, kind notify.EventKind, _ any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.signals = append(n.signals, kind)
}

func (n *recordingNotifier) has(title string, typ notify.Type) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, rec := range n.notices {
		if rec.title == title && rec.typ == typ {
			return true
		}
	}
	return false
}

func (n *recordingNotifier) count(kind notify.EventKind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, k := range n.signals {
		if k == kind {
			c++
		}
	}
	return c
}

type flakyStore struct {
	*records.InMemoryStore
	failInsert bool
	failCount  bool
}

func (f *flakyStore) InsertScript(ctx context.Context, a records.ScriptArtifact) error {
	if f.failInsert {
		return errors.New("connection reset")
	}
	return f.InMemoryStore.InsertScript(ctx, a)
}

func (f *flakyStore) InsertVoiceClip(ctx context.Context, a records.VoiceArtifact) error {
	if f.failInsert {
		return errors.New("connection reset")
	}
	return f.InMemoryStore.InsertVoiceClip(ctx, a)
}

func (f *flakyStore) CountScripts(ctx context.Context, userID string) (int64, error) {
	if f.failCount {
		return 0, errors.New("statement timeout")
	}
	return f.InMemoryStore.CountScripts(ctx, userID)
}

// heldPlayer starts media that only ends when paused.
type heldPlayer struct{}

type heldMedia struct {
	done chan struct{}
	once sync.Once
}

func (heldPlayer) Start(context.Context, []byte, string) (playback.Media, error) {
	return &heldMedia{done: make(chan struct{})}, nil
}

func (m *heldMedia) Done() <-chan struct{} { return m.done }
func (m *heldMedia) Pause()                { m.once.Do(func() { close(m.done) }) }

type fixture struct {
	studio    *Studio
	gen       *fakeGenerator
	store     *flakyStore
	resources *audio.Resources
	notifier  *recordingNotifier
	releases  map[audio.Handle]int
	mu        *sync.Mutex
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := &flakyStore{InMemoryStore: records.NewInMemoryStore()}
	resources := audio.NewResources(time.Hour)
	mu := &sync.Mutex{}
	releases := make(map[audio.Handle]int)
	resources.SetReleaseHook(func(r audio.Resource) {
		mu.Lock()
		releases[r.Handle]++
		mu.Unlock()
	})
	gen := &fakeGenerator{}
	notifier := &recordingNotifier{}
	s := New(Options{
		Generator: gen,
		Bridge:    records.NewBridge(store, records.NewMemoryBlobStore(), nil),
		Resources: resources,
		Players:   playback.NewHub(resources, heldPlayer{}),
		Notifier:  notifier,
		Now:       func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) },
	})
	return &fixture{studio: s, gen: gen, store: store, resources: resources, notifier: notifier, releases: releases, mu: mu}
}

func (f *fixture) released(h audio.Handle) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.releases[h]
}

func fortyFiveWords() string {
	return "Did you know " + strings.Repeat("money ", 38) + "Check link in bio."
}

func TestRequestScriptPersistsWithRecomputedWordCount(t *testing.T) {
	f := newFixture(t)
	f.gen.script = fortyFiveWords()

	res, err := f.studio.RequestScript(context.Background(), "u1", "money hacks", "")
	if err != nil {
		t.Fatalf("RequestScript() error = %v", err)
	}
	if res.PersistErr != nil || res.Artifact == nil {
		t.Fatalf("result = %+v, want persisted artifact", res)
	}
	if res.Artifact.WordCount != 45 || res.WordCount != 45 {
		t.Fatalf("WordCount = %d/%d, want 45", res.Artifact.WordCount, res.WordCount)
	}
	if res.Artifact.Title != "Money Hacks Script - Mar 14, 2026" || res.Artifact.Niche != "Money Hacks" {
		t.Fatalf("artifact = %+v", res.Artifact)
	}
	if !f.notifier.has("Script generated!", notify.TypeSuccess) {
		t.Fatalf("missing success notice: %+v", f.notifier.notices)
	}
	if f.notifier.count(notify.EventStatsChanged) != 1 {
		t.Fatalf("stats_changed signals = %d, want 1", f.notifier.count(notify.EventStatsChanged))
	}
}

func TestScriptPersistenceFailureStillReturnsText(t *testing.T) {
	f := newFixture(t)
	f.gen.script = fortyFiveWords()
	f.store.failInsert = true

	res, err := f.studio.RequestScript(context.Background(), "u1", "Tech Facts", "")
	if err != nil {
		t.Fatalf("RequestScript() error = %v, want partial success", err)
	}
	if res.Script != f.gen.script || res.Artifact != nil {
		t.Fatalf("result = %+v", res)
	}
	if !apperr.Is(res.PersistErr, apperr.KindPersistence) {
		t.Fatalf("PersistErr = %v, want persistence", res.PersistErr)
	}
	if !f.notifier.has("Script generated!", notify.TypeSuccess) || !f.notifier.has("Not saved to your library", notify.TypeWarning) {
		t.Fatalf("notices = %+v, want success and distinct persistence warning", f.notifier.notices)
	}
	if f.notifier.count(notify.EventStatsChanged) != 0 {
		t.Fatalf("stats changed after failed save")
	}
}

func TestGenerationFailureSkipsPersistence(t *testing.T) {
	f := newFixture(t)
	f.gen.scriptErr = apperr.Upstream(500, "OpenAI API error: 500 - boom", true)

	_, err := f.studio.RequestScript(context.Background(), "u1", "Tech Facts", "")
	if !apperr.Is(err, apperr.KindUpstream) {
		t.Fatalf("RequestScript() error = %v, want upstream", err)
	}
	n, _ := f.store.CountScripts(context.Background(), "u1")
	if n != 0 {
		t.Fatalf("CountScripts() = %d, want 0", n)
	}
	if !f.notifier.has("Generation failed", notify.TypeError) {
		t.Fatalf("missing failure notice: %+v", f.notifier.notices)
	}
}

func TestScriptValidationNeverCallsCapability(t *testing.T) {
	f := newFixture(t)
	for _, niche := range []string{"", "Underwater Basket Weaving"} {
		if _, err := f.studio.RequestScript(context.Background(), "u1", niche, ""); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("RequestScript(%q) error = %v, want validation", niche, err)
		}
	}
	if f.gen.calls != 0 {
		t.Fatalf("generator calls = %d, want 0", f.gen.calls)
	}
}

func TestAnonymousGenerationIsNotSaved(t *testing.T) {
	f := newFixture(t)
	f.gen.script = "Short script."

	res, err := f.studio.RequestScript(context.Background(), "", "Life Tips", "")
	if err != nil {
		t.Fatalf("RequestScript() error = %v", err)
	}
	if res.Script != "Short script." || !apperr.Is(res.PersistErr, apperr.KindUnauthenticated) {
		t.Fatalf("result = %+v", res)
	}
	if f.notifier.has("Not saved to your library", notify.TypeWarning) {
		t.Fatalf("anonymous generation raised a persistence warning")
	}
}

func TestSecondConcurrentGenerationIsRejected(t *testing.T) {
	f := newFixture(t)
	f.gen.script = "ok"
	f.gen.block = make(chan struct{})

	errs := make(chan error, 1)
	go func() {
		_, err := f.studio.RequestScript(context.Background(), "u1", "Tech Facts", "")
		errs <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		f.gen.mu.Lock()
		calls := f.gen.calls
		f.gen.mu.Unlock()
		if calls == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("first generation never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := f.studio.RequestScript(context.Background(), "u1", "Tech Facts", ""); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("second RequestScript() error = %v, want validation", err)
	}
	if _, err := f.studio.RequestScript(context.Background(), "u2", "", ""); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("other user error = %v, want niche validation only", err)
	}
	close(f.gen.block)
	if err := <-errs; err != nil {
		t.Fatalf("first RequestScript() error = %v", err)
	}
}

func TestRequestVoicePersistsDecodedSize(t *testing.T) {
	f := newFixture(t)
	clip := make([]byte, 4321)
	copy(clip, "ID3")
	f.gen.payload = audio.EncodeTransport(clip)
	text := strings.Repeat("a", 150)

	res, err := f.studio.RequestVoice(context.Background(), "u1", text, rachel, "")
	if err != nil {
		t.Fatalf("RequestVoice() error = %v", err)
	}
	if res.Artifact == nil || res.Artifact.FileSize != 4321 || res.Artifact.DurationSeconds != 1 {
		t.Fatalf("artifact = %+v, want size 4321 and duration 1", res.Artifact)
	}
	if res.Artifact.VoiceName != "Rachel" || res.Artifact.Title != "Voice Clip - Mar 14, 2026" {
		t.Fatalf("artifact = %+v", res.Artifact)
	}
	data, meta, err := f.resources.Open(res.Handle)
	if err != nil || len(data) != 4321 || meta.MIME != audio.MIMEMPEG {
		t.Fatalf("Open(handle) = %d bytes, %+v, %v", len(data), meta, err)
	}
}

func TestVoicePersistenceFailureKeepsPreview(t *testing.T) {
	f := newFixture(t)
	f.gen.payload = audio.EncodeTransport([]byte("ID3 audio"))
	f.store.failInsert = true

	res, err := f.studio.RequestVoice(context.Background(), "u1", "hello there", rachel, "")
	if err != nil {
		t.Fatalf("RequestVoice() error = %v", err)
	}
	if !apperr.Is(res.PersistErr, apperr.KindPersistence) || res.Handle == "" {
		t.Fatalf("result = %+v, want handle and persistence error", res)
	}
	if _, _, err := f.resources.Open(res.Handle); err != nil {
		t.Fatalf("preview handle unusable: %v", err)
	}
}

func TestMalformedPayloadAllocatesNothing(t *testing.T) {
	f := newFixture(t)
	f.gen.payload = "not base64!!"

	_, err := f.studio.RequestVoice(context.Background(), "u1", "hello", rachel, "")
	if !apperr.Is(err, apperr.KindMalformedData) {
		t.Fatalf("RequestVoice() error = %v, want malformed data", err)
	}
	if f.resources.Live() != 0 {
		t.Fatalf("Live() = %d, want 0", f.resources.Live())
	}
}

func TestUnknownVoiceRejected(t *testing.T) {
	f := newFixture(t)
	if _, err := f.studio.RequestVoice(context.Background(), "u1", "hello", "nobody", ""); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("RequestVoice() error = %v, want validation", err)
	}
}

func saveClip(t *testing.T, f *fixture, user string) string {
	t.Helper()
	f.gen.payload = audio.EncodeTransport([]byte("ID3 " + t.Name()))
	res, err := f.studio.RunVoiceGeneration(context.Background(), user, "hello there", rachel, "")
	if err != nil || res.Artifact == nil {
		t.Fatalf("RunVoiceGeneration() = %+v, %v", res, err)
	}
	f.resources.Release(res.Handle)
	return res.Artifact.ID
}

func TestPlayThenPlayReleasesFirstExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clipA := saveClip(t, f, "u1")
	clipB := saveClip(t, f, "u1")

	first, err := f.studio.RequestPlay(ctx, "u1", clipA)
	if err != nil {
		t.Fatalf("RequestPlay(a) error = %v", err)
	}
	if _, err := f.studio.RequestPlay(ctx, "u1", clipB); err != nil {
		t.Fatalf("RequestPlay(b) error = %v", err)
	}

	if n := f.released(first.Session.Handle); n != 1 {
		t.Fatalf("clip a released %d times, want 1", n)
	}
	state := f.studio.PlaybackState("u1")
	if !state.Playing || state.Session.Ref != clipB {
		t.Fatalf("PlaybackState() = %+v, want clip b", state)
	}
	if f.resources.Live() != 1 {
		t.Fatalf("Live() = %d, want 1", f.resources.Live())
	}
}

func TestPlaybackRequiresIdentityAndOwnership(t *testing.T) {
	f := newFixture(t)
	clip := saveClip(t, f, "u1")
	if _, err := f.studio.RequestPlay(context.Background(), "", clip); !apperr.Is(err, apperr.KindUnauthenticated) {
		t.Fatalf("anonymous RequestPlay() error = %v", err)
	}
	if _, err := f.studio.RequestPlay(context.Background(), "u2", clip); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("foreign RequestPlay() error = %v, want not found", err)
	}

	h := f.resources.Allocate("u1", []byte("ID3"), audio.MIMEMPEG)
	if err := f.studio.ReleaseResource("u2", h); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("foreign ReleaseResource() error = %v, want not found", err)
	}
	if _, err := f.studio.RequestPlayResource(context.Background(), "u2", h); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("foreign RequestPlayResource() error = %v, want not found", err)
	}
}

func TestTogglePreviewHandle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.resources.Allocate("u1", []byte("ID3 preview"), audio.MIMEMPEG)

	state, err := f.studio.RequestToggle(ctx, "u1", string(h))
	if err != nil || !state.Playing {
		t.Fatalf("RequestToggle(start) = %+v, %v", state, err)
	}
	state, err = f.studio.RequestToggle(ctx, "u1", string(h))
	if err != nil || state.Playing {
		t.Fatalf("RequestToggle(stop) = %+v, %v", state, err)
	}
	if f.released(h) != 1 {
		t.Fatalf("preview released %d times, want 1", f.released(h))
	}
	if _, err := f.studio.RequestStop("u1"); err != nil {
		t.Fatalf("RequestStop() on idle error = %v", err)
	}
}

func TestReleaseBoundResourceStopsPlayback(t *testing.T) {
	f := newFixture(t)
	h := f.resources.Allocate("u1", []byte("ID3"), audio.MIMEMPEG)
	if _, err := f.studio.RequestPlayResource(context.Background(), "u1", h); err != nil {
		t.Fatalf("RequestPlayResource() error = %v", err)
	}
	if err := f.studio.ReleaseResource("u1", h); err != nil {
		t.Fatalf("ReleaseResource() error = %v", err)
	}
	if f.studio.PlaybackState("u1").Playing || f.released(h) != 1 {
		t.Fatalf("playing=%v released=%d", f.studio.PlaybackState("u1").Playing, f.released(h))
	}
	if err := f.studio.ReleaseResource("u1", h); err != nil {
		t.Fatalf("second ReleaseResource() error = %v, want idempotent", err)
	}
}

func TestDeletePlayingClipStopsIt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clip := saveClip(t, f, "u1")
	if _, err := f.studio.RequestPlay(ctx, "u1", clip); err != nil {
		t.Fatalf("RequestPlay() error = %v", err)
	}

	if err := f.studio.RequestDelete(ctx, "u1", clip, KindVoice); err != nil {
		t.Fatalf("RequestDelete() error = %v", err)
	}
	if f.studio.PlaybackState("u1").Playing {
		t.Fatalf("deleted clip still playing")
	}
	if err := f.studio.RequestDelete(ctx, "u1", clip, KindVoice); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("second RequestDelete() error = %v, want not found", err)
	}
	if _, err := f.studio.ExportAudio(ctx, "u1", clip); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("ExportAudio(deleted) error = %v, want not found", err)
	}
}

func TestStatsNeverHideFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gen.script = "one two three"
	if _, err := f.studio.RequestScript(ctx, "u1", "Tech Facts", ""); err != nil {
		t.Fatalf("RequestScript() error = %v", err)
	}
	stats, err := f.studio.RequestStats(ctx, "u1")
	if err != nil || stats.Scripts != 1 || stats.Downloads != 1 {
		t.Fatalf("RequestStats() = %+v, %v", stats, err)
	}

	f.store.failCount = true
	if _, err := f.studio.RequestStats(ctx, "u1"); !apperr.Is(err, apperr.KindPersistence) {
		t.Fatalf("RequestStats() error = %v, want persistence", err)
	}
	if !f.notifier.has("Statistics unavailable", notify.TypeError) {
		t.Fatalf("missing stats failure notice")
	}
}

func TestLibraryAndExport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clip := saveClip(t, f, "u1")

	lib, err := f.studio.Library(ctx, "u1", "", records.ListFilter{})
	if err != nil {
		t.Fatalf("Library() error = %v", err)
	}
	if len(lib.VoiceClips) != 1 || len(lib.Scripts) != 0 {
		t.Fatalf("Library() = %+v", lib)
	}
	exp, err := f.studio.ExportAudio(ctx, "u1", clip)
	if err != nil {
		t.Fatalf("ExportAudio() error = %v", err)
	}
	if exp.Filename != "voiceover_"+clip+".mp3" || !strings.HasPrefix(string(exp.Data), "ID3") {
		t.Fatalf("ExportAudio() = %q, %q", exp.Filename, exp.Data)
	}
}

func TestParseArtifactKind(t *testing.T) {
	for in, want := range map[string]ArtifactKind{"script": KindScript, "Voices": KindVoice, "voice_clip": KindVoice} {
		got, err := ParseArtifactKind(in)
		if err != nil || got != want {
			t.Fatalf("ParseArtifactKind(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseArtifactKind("image"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("ParseArtifactKind(image) error = %v", err)
	}
}

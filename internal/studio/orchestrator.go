package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/antoniostano/reelstudio/internal/apperr"
	"github.com/antoniostano/reelstudio/internal/audio"
	"github.com/antoniostano/reelstudio/internal/catalog"
	"github.com/antoniostano/reelstudio/internal/notify"
	"github.com/antoniostano/reelstudio/internal/observability"
	"github.com/antoniostano/reelstudio/internal/playback"
	"github.com/antoniostano/reelstudio/internal/records"
)

// Generator is the capability boundary: the gateway client in production.
type Generator interface {
	GenerateScript(ctx context.Context, niche, extra string) (string, error)
	SynthesizeSpeech(ctx context.Context, text, voiceID string) (string, error)
}

// Notifier receives user-visible outcomes.
type Notifier interface {
	Publish(userID, title, message string, typ notify.Type) notify.Notice
	Signal(userID string, kind notify.EventKind, data any)
}

// ArtifactKind selects scripts or voice clips in kind-generic requests.
type ArtifactKind string

const (
	KindScript ArtifactKind = "script"
	KindVoice  ArtifactKind = "voice"
)

func ParseArtifactKind(v string) (ArtifactKind, error) {
	switch ArtifactKind(strings.ToLower(strings.TrimSpace(v))) {
	case KindScript, "scripts":
		return KindScript, nil
	case KindVoice, "voices", "voice_clip", "voice_clips":
		return KindVoice, nil
	default:
		return "", apperr.Validation("unknown artifact kind %q", v)
	}
}

// ScriptResult is the outcome of a script generation. Script is always set on success;
// Artifact is nil when PersistErr is set.
type ScriptResult struct {
	Script     string                  `json:"script"`
	Niche      string                  `json:"niche"`
	WordCount  int                     `json:"word_count"`
	Artifact   *records.ScriptArtifact `json:"artifact,omitempty"`
	PersistErr error                   `json:"-"`
}

// VoiceResult is the outcome of a speech generation. Handle addresses the decoded audio
// for immediate preview whatever happened to persistence.
type VoiceResult struct {
	Handle     audio.Handle           `json:"handle"`
	MIME       string                 `json:"mime"`
	Size       int                    `json:"size"`
	Artifact   *records.VoiceArtifact `json:"artifact,omitempty"`
	PersistErr error                  `json:"-"`
}

type Options struct {
	Generator Generator
	Bridge    *records.Bridge
	Resources *audio.Resources
	Players   *playback.Hub
	Notifier  Notifier
	Metrics   *observability.Metrics
	Logger    *zap.Logger
	Now       func() time.Time
}

// Studio runs generation, persistence and playback requests for identified users.
type Studio struct {
	gen       Generator
	bridge    *records.Bridge
	resources *audio.Resources
	players   *playback.Hub
	notifier  Notifier
	metrics   *observability.Metrics
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{}
}

func New(opts Options) *Studio {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	resources := opts.Resources
	if resources == nil {
		resources = audio.NewResources(0)
	}
	players := opts.Players
	if players == nil {
		players = playback.NewHub(resources, nil)
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.NewCenter(0)
	}
	s := &Studio{
		gen:       opts.Generator,
		bridge:    opts.Bridge,
		resources: resources,
		players:   players,
		notifier:  notifier,
		metrics:   opts.Metrics,
		logger:    logger.Named("studio"),
		tracer:    otel.Tracer("reelstudio/studio"),
		now:       now,
		inflight:  make(map[string]struct{}),
	}
	players.SetEventHook(s.onPlayback)
	return s
}

// RunScriptGeneration asks the capability for a script and persists it. A generation
// failure is returned as the error and nothing is saved. A persistence failure is not:
// the script comes back with PersistErr set.
func (s *Studio) RunScriptGeneration(ctx context.Context, userID, niche, extra string) (ScriptResult, error) {
	canonical, err := validateNiche(niche)
	if err != nil {
		return ScriptResult{}, err
	}
	ctx, span := s.tracer.Start(ctx, "studio.run_script_generation",
		trace.WithAttributes(attribute.String("niche", canonical), attribute.Bool("authenticated", userID != "")))
	defer span.End()

	started := time.Now()
	script, err := s.gen.GenerateScript(ctx, canonical, extra)
	s.metrics.ObserveGeneration(string(KindScript), outcome(err), time.Since(started))
	if err != nil {
		recordSpanError(span, err)
		return ScriptResult{}, err
	}

	res := ScriptResult{Script: script, Niche: canonical, WordCount: records.WordCount(script)}
	if userID == "" {
		res.PersistErr = apperr.Unauthenticated()
		return res, nil
	}

	persistStarted := time.Now()
	artifact, err := s.bridge.SaveScript(ctx, userID, records.ScriptDraft{
		Title:   fmt.Sprintf("%s Script - %s", canonical, s.now().Format("Jan 2, 2006")),
		Content: script,
		Niche:   canonical,
	})
	s.metrics.ObserveStage("persist_script", time.Since(persistStarted))
	if err != nil {
		s.metrics.ObservePersistenceFailure("save_script")
		observability.WithTrace(ctx, s.logger).Warn("script generated but not saved", zap.String("user_id", userID), zap.Error(err))
		span.AddEvent("persistence_failed")
		res.PersistErr = err
		return res, nil
	}
	res.Artifact = &artifact
	res.WordCount = artifact.WordCount
	return res, nil
}

// RunVoiceGeneration synthesizes text, decodes the transport payload into a playable
// resource and persists the clip. The resource handle is returned even when persistence
// fails; the caller owns it until it is played or released.
func (s *Studio) RunVoiceGeneration(ctx context.Context, userID, text, voiceID, scriptID string) (VoiceResult, error) {
	voice, err := validateVoiceRequest(text, voiceID)
	if err != nil {
		return VoiceResult{}, err
	}
	ctx, span := s.tracer.Start(ctx, "studio.run_voice_generation",
		trace.WithAttributes(attribute.String("voice_id", voice.ID), attribute.Int("text_runes", len([]rune(text)))))
	defer span.End()

	started := time.Now()
	payload, err := s.gen.SynthesizeSpeech(ctx, text, voice.ID)
	if err == nil {
		var data []byte
		data, err = audio.DecodeTransport(payload)
		if err == nil {
			s.metrics.ObserveGeneration(string(KindVoice), outcome(nil), time.Since(started))
			return s.finishVoice(ctx, span, userID, text, voice, scriptID, data), nil
		}
	}
	s.metrics.ObserveGeneration(string(KindVoice), outcome(err), time.Since(started))
	recordSpanError(span, err)
	return VoiceResult{}, err
}

func (s *Studio) finishVoice(ctx context.Context, span trace.Span, userID, text string, voice catalog.Voice, scriptID string, data []byte) VoiceResult {
	mime := audio.SniffMIME(data)
	if mime != audio.MIMEWAV {
		mime = audio.MIMEMPEG
	}
	handle := s.resources.Allocate(userID, data, mime)
	s.syncLiveResources()
	res := VoiceResult{Handle: handle, MIME: mime, Size: len(data)}
	span.SetAttributes(attribute.Int("audio_bytes", len(data)))

	if userID == "" {
		res.PersistErr = apperr.Unauthenticated()
		return res
	}

	persistStarted := time.Now()
	artifact, err := s.bridge.SaveVoiceClip(ctx, userID, records.VoiceDraft{
		Title:      "Voice Clip - " + s.now().Format("Jan 2, 2006"),
		VoiceID:    voice.ID,
		VoiceName:  voice.Name,
		SourceText: text,
		ScriptID:   strings.TrimSpace(scriptID),
		Audio:      data,
		MIME:       mime,
	})
	s.metrics.ObserveStage("persist_voice", time.Since(persistStarted))
	if err != nil {
		s.metrics.ObservePersistenceFailure("save_voice_clip")
		observability.WithTrace(ctx, s.logger).Warn("voice generated but not saved", zap.String("user_id", userID), zap.Error(err))
		span.AddEvent("persistence_failed")
		res.PersistErr = err
		return res
	}
	res.Artifact = &artifact
	return res
}

// RequestScript is the user-facing script request: one in flight per user, with the
// outcome announced as notices.
func (s *Studio) RequestScript(ctx context.Context, userID, niche, extra string) (ScriptResult, error) {
	done, err := s.begin(userID, KindScript)
	if err != nil {
		return ScriptResult{}, err
	}
	defer done()

	res, err := s.RunScriptGeneration(ctx, userID, niche, extra)
	if err != nil {
		s.announceFailure(userID, "Generation failed", err)
		return res, err
	}
	s.notifier.Publish(userID, "Script generated!", "Your viral content script is ready.", notify.TypeSuccess)
	s.announcePersistence(userID, KindScript, res.PersistErr)
	return res, nil
}

// RequestVoice is the user-facing speech request.
func (s *Studio) RequestVoice(ctx context.Context, userID, text, voiceID, scriptID string) (VoiceResult, error) {
	done, err := s.begin(userID, KindVoice)
	if err != nil {
		return VoiceResult{}, err
	}
	defer done()

	res, err := s.RunVoiceGeneration(ctx, userID, text, voiceID, scriptID)
	if err != nil {
		s.announceFailure(userID, "Generation failed", err)
		return res, err
	}
	s.notifier.Publish(userID, "Voice generated!",
		fmt.Sprintf("Your AI voiceover is ready to play (%s).", humanize.Bytes(uint64(res.Size))), notify.TypeSuccess)
	s.announcePersistence(userID, KindVoice, res.PersistErr)
	return res, nil
}

// begin enforces one in-flight generation per kind per signed-in user. Anonymous callers
// have no scope to guard.
func (s *Studio) begin(userID string, kind ArtifactKind) (func(), error) {
	if userID == "" {
		return func() {}, nil
	}
	key := userID + "|" + string(kind)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[key]; busy {
		return nil, apperr.Validation("%s generation already in progress", kind)
	}
	s.inflight[key] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.inflight, key)
		s.mu.Unlock()
	}, nil
}

func (s *Studio) announceFailure(userID, title string, err error) {
	s.notifier.Publish(userID, title, describe(err), notify.TypeError)
}

func (s *Studio) announcePersistence(userID string, kind ArtifactKind, err error) {
	switch {
	case err == nil:
		s.notifier.Signal(userID, notify.EventStatsChanged, string(kind))
	case apperr.Is(err, apperr.KindUnauthenticated):
		// Generation for signed-out users is honored but never saved.
	default:
		s.notifier.Publish(userID, "Not saved to your library", describe(err), notify.TypeWarning)
	}
}

func (s *Studio) syncLiveResources() {
	if s.metrics == nil {
		return
	}
	s.metrics.LiveResources.Set(float64(s.resources.Live()))
}

func validateNiche(niche string) (string, error) {
	if strings.TrimSpace(niche) == "" {
		return "", apperr.Validation("Please select a niche for your content.")
	}
	canonical, ok := catalog.CanonicalNiche(niche)
	if !ok {
		return "", apperr.Validation("unrecognized niche %q", strings.TrimSpace(niche))
	}
	return canonical, nil
}

func validateVoiceRequest(text, voiceID string) (catalog.Voice, error) {
	if strings.TrimSpace(text) == "" {
		return catalog.Voice{}, apperr.Validation("Please enter text to convert to speech.")
	}
	if strings.TrimSpace(voiceID) == "" {
		return catalog.Voice{}, apperr.Validation("Please select a voice for generation.")
	}
	voice, ok := catalog.LookupVoice(voiceID)
	if !ok {
		return catalog.Voice{}, apperr.Validation("unrecognized voice %q", strings.TrimSpace(voiceID))
	}
	return voice, nil
}

// describe is the short user-facing description of err.
func describe(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindNotFound, apperr.KindPlayback:
		var ae *apperr.Error
		if errors.As(err, &ae) && ae.Message != "" {
			return ae.Message
		}
		return err.Error()
	case apperr.KindUnauthenticated:
		return "Sign in to save content to your library."
	case apperr.KindUpstream:
		return "Please try again in a moment."
	case apperr.KindServiceUnavailable:
		return "The AI service is not available right now."
	case apperr.KindMalformedData:
		return "The generated audio could not be decoded."
	case apperr.KindPersistence:
		return "Your content could not be saved. It is still available in this session."
	default:
		return "Something went wrong. Please try again."
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(apperr.KindOf(err))
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

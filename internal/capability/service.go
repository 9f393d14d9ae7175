package capability

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/antoniostano/reelstudio/internal/audio"
	"github.com/antoniostano/reelstudio/internal/config"
)

var (
	ErrNicheRequired       = errors.New("Niche is required")
	ErrSpeechInputRequired = errors.New("Text and voiceId are required")
	ErrScriptNotConfigured = errors.New("AI service not configured")
	ErrSpeechNotConfigured = errors.New("Speech service not configured")
)

// Service backs the generate-script and generate-voice endpoints.
type Service struct {
	script ScriptProvider
	speech SpeechProvider
	logger *zap.Logger
}

func NewService(script ScriptProvider, speech SpeechProvider, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{script: script, speech: speech, logger: logger}
}

// NewServiceFromConfig picks providers from the configured keys. In "auto" mode both
// configured backends are chained primary/fallback; with no keys a capability reports
// itself not configured.
func NewServiceFromConfig(cfg config.Config, logger *zap.Logger) *Service {
	oa := OpenAIConfig{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		ChatModel:   cfg.ScriptModel,
		SpeechModel: cfg.OpenAITTSModel,
	}

	var primaryScript, fallbackScript ScriptProvider
	switch strings.ToLower(cfg.ScriptProvider) {
	case "mock":
		primaryScript = MockScriptProvider{}
	case "openai":
		primaryScript = NewOpenAIScriptProvider(oa)
	case "anthropic":
		primaryScript = NewAnthropicScriptProvider(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	default:
		if cfg.OpenAIAPIKey != "" {
			primaryScript = NewOpenAIScriptProvider(oa)
		}
		if cfg.AnthropicAPIKey != "" {
			fallbackScript = NewAnthropicScriptProvider(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		}
	}

	var primarySpeech, fallbackSpeech SpeechProvider
	el := ElevenLabsConfig{APIKey: cfg.ElevenLabsAPIKey, BaseURL: cfg.ElevenLabsBaseURL, ModelID: cfg.ElevenLabsModel}
	switch strings.ToLower(cfg.SpeechProvider) {
	case "mock":
		primarySpeech = MockSpeechProvider{}
	case "elevenlabs":
		primarySpeech = NewElevenLabsSpeechProvider(el)
	case "openai":
		primarySpeech = NewOpenAISpeechProvider(oa)
	default:
		if cfg.ElevenLabsAPIKey != "" {
			primarySpeech = NewElevenLabsSpeechProvider(el)
		}
		if cfg.OpenAIAPIKey != "" {
			fallbackSpeech = NewOpenAISpeechProvider(oa)
		}
	}

	script, speech := NewFailoverPair(primaryScript, fallbackScript, primarySpeech, fallbackSpeech)
	return NewService(script, speech, logger)
}

func (s *Service) ScriptProviderName() string {
	if s.script == nil {
		return "none"
	}
	return s.script.Name()
}

func (s *Service) SpeechProviderName() string {
	if s.speech == nil {
		return "none"
	}
	return s.speech.Name()
}

func (s *Service) GenerateScript(ctx context.Context, req ScriptRequest) (string, error) {
	if strings.TrimSpace(req.Niche) == "" {
		return "", ErrNicheRequired
	}
	if s.script == nil {
		s.logger.Error("script provider missing")
		return "", ErrScriptNotConfigured
	}

	start := time.Now()
	script, err := s.script.GenerateScript(ctx, req)
	if err != nil {
		s.logger.Warn("script generation failed",
			zap.String("provider", s.script.Name()),
			zap.String("niche", req.Niche),
			zap.Error(errors.New(publicMessage(err))),
		)
		return "", err
	}
	s.logger.Info("script generated",
		zap.String("provider", s.script.Name()),
		zap.String("niche", req.Niche),
		zap.Int("chars", len(script)),
		zap.Duration("took", time.Since(start)),
	)
	return strings.TrimSpace(script), nil
}

// Synthesize returns the audio as the base64 transport payload.
func (s *Service) Synthesize(ctx context.Context, text, voiceID string) (string, error) {
	if strings.TrimSpace(text) == "" || strings.TrimSpace(voiceID) == "" {
		return "", ErrSpeechInputRequired
	}
	if s.speech == nil {
		s.logger.Error("speech provider missing")
		return "", ErrSpeechNotConfigured
	}

	start := time.Now()
	data, mime, err := s.speech.Synthesize(ctx, text, voiceID)
	if err != nil {
		s.logger.Warn("voice generation failed",
			zap.String("provider", s.speech.Name()),
			zap.String("voice_id", voiceID),
			zap.Error(errors.New(publicMessage(err))),
		)
		return "", err
	}
	s.logger.Info("voice generated",
		zap.String("provider", s.speech.Name()),
		zap.String("voice_id", voiceID),
		zap.String("mime", mime),
		zap.Int("bytes", len(data)),
		zap.Duration("took", time.Since(start)),
	)
	return audio.EncodeTransport(data), nil
}

// HTTPStatus maps a Service error to the status the capability endpoint answers with.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNicheRequired), errors.Is(err, ErrSpeechInputRequired):
		return 400
	case errors.Is(err, ErrScriptNotConfigured), errors.Is(err, ErrSpeechNotConfigured):
		return 503
	default:
		return providerStatus(err)
	}
}

// PublicMessage is the client-safe text for a Service error.
func PublicMessage(err error) string {
	return publicMessage(err)
}

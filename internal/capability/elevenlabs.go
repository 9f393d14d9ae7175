package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const elevenLabsOutputFormat = "mp3_44100_128"

type ElevenLabsConfig struct {
	APIKey  string
	BaseURL string
	ModelID string
}

type elevenLabsRequest struct {
	Text          string                 `json:"text"`
	ModelID       string                 `json:"model_id"`
	VoiceSettings *elevenLabsVoiceParams `json:"voice_settings,omitempty"`
}

type elevenLabsVoiceParams struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// ElevenLabsSpeechProvider synthesizes MP3 through the ElevenLabs REST API.
type ElevenLabsSpeechProvider struct {
	cfg        ElevenLabsConfig
	httpClient *http.Client
}

func NewElevenLabsSpeechProvider(cfg ElevenLabsConfig) *ElevenLabsSpeechProvider {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.elevenlabs.io"
	}
	if strings.TrimSpace(cfg.ModelID) == "" {
		cfg.ModelID = "eleven_multilingual_v2"
	}
	return &ElevenLabsSpeechProvider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *ElevenLabsSpeechProvider) Name() string { return "elevenlabs" }

func (p *ElevenLabsSpeechProvider) Synthesize(ctx context.Context, text, voiceID string) ([]byte, string, error) {
	body, err := json.Marshal(elevenLabsRequest{
		Text:    text,
		ModelID: p.cfg.ModelID,
		VoiceSettings: &elevenLabsVoiceParams{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return nil, "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s",
		strings.TrimRight(p.cfg.BaseURL, "/"), url.PathEscape(voiceID), elevenLabsOutputFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("xi-api-key", p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	res, err := p.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, "", newProviderError("ElevenLabs", res.StatusCode, strings.TrimSpace(string(errBody)))
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read response: %w", err)
	}
	if len(data) == 0 {
		return nil, "", newProviderError("ElevenLabs", res.StatusCode, "empty audio returned")
	}
	return data, "audio/mpeg", nil
}

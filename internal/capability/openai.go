package capability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/antoniostano/reelstudio/internal/catalog"
)

type OpenAIConfig struct {
	APIKey string
	// BaseURL points at any OpenAI-compatible gateway. Empty means api.openai.com.
	BaseURL     string
	ChatModel   string
	SpeechModel string
}

func newOpenAIClient(cfg OpenAIConfig) *openai.Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		oc.BaseURL = strings.TrimRight(base, "/")
	}
	return openai.NewClientWithConfig(oc)
}

// OpenAIScriptProvider writes scripts through the chat completions API.
type OpenAIScriptProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAIScriptProvider(cfg OpenAIConfig) *OpenAIScriptProvider {
	model := strings.TrimSpace(cfg.ChatModel)
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIScriptProvider{client: newOpenAIClient(cfg), model: model}
}

func (p *OpenAIScriptProvider) Name() string { return "openai" }

func (p *OpenAIScriptProvider) GenerateScript(ctx context.Context, req ScriptRequest) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: scriptSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: scriptUserPrompt(req)},
		},
		MaxTokens:   scriptMaxTokens,
		Temperature: scriptTemperature,
	})
	if err != nil {
		return "", openAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", newProviderError(p.Name(), 0, "no choices returned")
	}
	script := strings.TrimSpace(resp.Choices[0].Message.Content)
	if script == "" {
		return "", newProviderError(p.Name(), 0, "empty script returned")
	}
	return script, nil
}

// OpenAISpeechProvider synthesizes MP3 with the audio/speech API. Catalog voices are
// mapped onto the closest OpenAI preset.
type OpenAISpeechProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAISpeechProvider(cfg OpenAIConfig) *OpenAISpeechProvider {
	model := strings.TrimSpace(cfg.SpeechModel)
	if model == "" {
		model = string(openai.TTSModel1)
	}
	return &OpenAISpeechProvider{client: newOpenAIClient(cfg), model: model}
}

func (p *OpenAISpeechProvider) Name() string { return "openai-tts" }

func (p *OpenAISpeechProvider) Synthesize(ctx context.Context, text, voiceID string) ([]byte, string, error) {
	resp, err := p.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(p.model),
		Input:          text,
		Voice:          openAIVoice(voiceID),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, "", openAIError(err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, "", fmt.Errorf("read speech response: %w", err)
	}
	if len(data) == 0 {
		return nil, "", newProviderError(p.Name(), 0, "empty audio returned")
	}
	return data, "audio/mpeg", nil
}

func openAIVoice(voiceID string) openai.SpeechVoice {
	if v, ok := catalog.LookupVoice(voiceID); ok && v.OpenAIVoice != "" {
		return openai.SpeechVoice(v.OpenAIVoice)
	}
	switch id := strings.ToLower(strings.TrimSpace(voiceID)); id {
	case "alloy", "echo", "fable", "onyx", "nova", "shimmer":
		return openai.SpeechVoice(id)
	}
	return openai.VoiceAlloy
}

func openAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return newProviderError("OpenAI", apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := fmt.Sprintf("request failed with status %d", reqErr.HTTPStatusCode)
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return newProviderError("OpenAI", reqErr.HTTPStatusCode, msg)
	}
	return err
}

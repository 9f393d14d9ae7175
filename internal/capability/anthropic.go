package capability

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicScriptProvider writes scripts with the Messages API.
type AnthropicScriptProvider struct {
	client anthropic.Client
	model  string
}

func NewAnthropicScriptProvider(apiKey, model string) *AnthropicScriptProvider {
	if strings.TrimSpace(model) == "" {
		model = "claude-haiku-4-5-20251001"
	}
	return &AnthropicScriptProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (p *AnthropicScriptProvider) Name() string { return "anthropic" }

func (p *AnthropicScriptProvider) GenerateScript(ctx context.Context, req ScriptRequest) (string, error) {
	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   scriptMaxTokens,
		Temperature: anthropic.Float(scriptTemperature),
		System: []anthropic.TextBlockParam{
			{Text: scriptSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(scriptUserPrompt(req))),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", newProviderError("Anthropic", apiErr.StatusCode, apiErr.Error())
		}
		return "", err
	}

	var parts []string
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			parts = append(parts, tb.Text)
		}
	}
	script := strings.TrimSpace(strings.Join(parts, ""))
	if script == "" {
		return "", newProviderError("Anthropic", 0, "empty script returned")
	}
	return script, nil
}

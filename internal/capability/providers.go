package capability

import (
	"context"
	"errors"
	"fmt"

	"github.com/antoniostano/reelstudio/internal/policy"
)

// ScriptRequest is what a text provider needs to write one script.
type ScriptRequest struct {
	Niche string
	Extra string
}

type ScriptProvider interface {
	Name() string
	GenerateScript(ctx context.Context, req ScriptRequest) (string, error)
}

// SpeechProvider turns text into encoded audio. It returns the audio bytes and their MIME type.
type SpeechProvider interface {
	Name() string
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, string, error)
}

// ProviderError is an upstream API rejection. Message is already scrubbed of credentials.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s API error: %d - %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s API error: %s", e.Provider, e.Message)
}

func newProviderError(provider string, status int, message string) *ProviderError {
	clean, _ := policy.RedactSecrets(message)
	return &ProviderError{Provider: provider, StatusCode: status, Message: clean}
}

// providerStatus is the HTTP status a capability handler should answer with for err.
func providerStatus(err error) int {
	var pe *ProviderError
	if errors.As(err, &pe) && pe.StatusCode >= 400 && pe.StatusCode <= 599 {
		// 503 from this endpoint means "not configured"; a provider outage is a bad gateway.
		if pe.StatusCode == 503 {
			return 502
		}
		return pe.StatusCode
	}
	return 500
}

// publicMessage is the client-safe text of err.
func publicMessage(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Error()
	}
	msg, _ := policy.RedactSecrets(err.Error())
	return msg
}

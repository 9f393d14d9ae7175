package capability

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// NewFailoverPair builds script and speech providers that prefer the primary backend
// and switch to the fallback when the primary fails. Once the fallback succeeds it stays
// active until it fails; then the primary is retried. Either fallback may be nil, in which
// case the primary is returned unchanged.
func NewFailoverPair(
	primaryScript, fallbackScript ScriptProvider,
	primarySpeech, fallbackSpeech SpeechProvider,
) (ScriptProvider, SpeechProvider) {
	var script ScriptProvider = primaryScript
	if primaryScript != nil && fallbackScript != nil {
		script = &failoverScriptProvider{primary: primaryScript, fallback: fallbackScript}
	} else if primaryScript == nil {
		script = fallbackScript
	}

	var speech SpeechProvider = primarySpeech
	if primarySpeech != nil && fallbackSpeech != nil {
		speech = &failoverSpeechProvider{primary: primarySpeech, fallback: fallbackSpeech}
	} else if primarySpeech == nil {
		speech = fallbackSpeech
	}
	return script, speech
}

type failoverState struct {
	fallbackActive atomic.Bool
}

func (s *failoverState) activateFallback()      { s.fallbackActive.Store(true) }
func (s *failoverState) deactivateFallback()    { s.fallbackActive.Store(false) }
func (s *failoverState) isFallbackActive() bool { return s.fallbackActive.Load() }

// runFailover tries primary and fallback in the order the state dictates and returns the
// winning result.
func runFailover[T any](ctx context.Context, state *failoverState, kind string, primary, fallback func() (T, error)) (T, error) {
	if state.isFallbackActive() {
		v, fbErr := fallback()
		if fbErr == nil {
			return v, nil
		}
		if canceled(ctx, fbErr) {
			return v, fbErr
		}
		// Fallback failed after being active; try primary again.
		v, prErr := primary()
		if prErr == nil {
			state.deactivateFallback()
			return v, nil
		}
		return v, fmt.Errorf("%s fallback failed: %v; %s primary failed: %w", kind, fbErr, kind, prErr)
	}

	v, prErr := primary()
	if prErr == nil || canceled(ctx, prErr) {
		return v, prErr
	}
	v, fbErr := fallback()
	if fbErr != nil {
		return v, fmt.Errorf("%s primary failed: %v; %s fallback failed: %w", kind, prErr, kind, fbErr)
	}
	state.activateFallback()
	return v, nil
}

func canceled(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled)
}

type failoverScriptProvider struct {
	state    failoverState
	primary  ScriptProvider
	fallback ScriptProvider
}

func (p *failoverScriptProvider) Name() string {
	return p.primary.Name() + "+" + p.fallback.Name()
}

func (p *failoverScriptProvider) GenerateScript(ctx context.Context, req ScriptRequest) (string, error) {
	return runFailover(ctx, &p.state, "script",
		func() (string, error) { return p.primary.GenerateScript(ctx, req) },
		func() (string, error) { return p.fallback.GenerateScript(ctx, req) },
	)
}

type speechResult struct {
	data []byte
	mime string
}

type failoverSpeechProvider struct {
	state    failoverState
	primary  SpeechProvider
	fallback SpeechProvider
}

func (p *failoverSpeechProvider) Name() string {
	return p.primary.Name() + "+" + p.fallback.Name()
}

func (p *failoverSpeechProvider) Synthesize(ctx context.Context, text, voiceID string) ([]byte, string, error) {
	res, err := runFailover(ctx, &p.state, "speech",
		func() (speechResult, error) {
			data, mime, err := p.primary.Synthesize(ctx, text, voiceID)
			return speechResult{data, mime}, err
		},
		func() (speechResult, error) {
			data, mime, err := p.fallback.Synthesize(ctx, text, voiceID)
			return speechResult{data, mime}, err
		},
	)
	if err != nil {
		return nil, "", err
	}
	return res.data, res.mime, nil
}

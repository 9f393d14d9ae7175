package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/antoniostano/reelstudio/internal/apperr"
	"github.com/antoniostano/reelstudio/internal/catalog"
	"github.com/antoniostano/reelstudio/internal/reliability"
)

const maxErrorBody = 8 << 10

// Client calls the text-generation and speech-synthesis capabilities. It never retries;
// UpstreamError.Retryable tells the caller whether a manual retry may help.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
		tracer:     otel.Tracer("reelstudio/gateway"),
	}
}

type scriptRequest struct {
	Niche       string `json:"niche"`
	PromptExtra string `json:"promptExtra,omitempty"`
}

type scriptResponse struct {
	Script string `json:"script"`
	Error  string `json:"error"`
}

type voiceRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voiceId"`
}

type voiceResponse struct {
	AudioContent string `json:"audioContent"`
}

// GenerateScript asks the text capability for one script. The returned text is non-empty
// and trimmed.
func (c *Client) GenerateScript(ctx context.Context, niche, extra string) (string, error) {
	niche = strings.TrimSpace(niche)
	if niche == "" {
		return "", apperr.Validation("Please select a niche for your content.")
	}
	canonical, ok := catalog.CanonicalNiche(niche)
	if !ok {
		return "", apperr.Validation("unrecognized niche %q", niche)
	}

	ctx, span := c.tracer.Start(ctx, "gateway.GenerateScript",
		trace.WithAttributes(attribute.String("niche", canonical)))
	defer span.End()

	status, body, err := c.post(ctx, "/generate-script", scriptRequest{
		Niche:       canonical,
		PromptExtra: strings.TrimSpace(extra),
	}, "text generation")
	if err != nil {
		return "", endSpan(span, err)
	}
	span.SetAttributes(attribute.Int("http.status_code", status))

	var resp scriptResponse
	jsonErr := json.Unmarshal(body, &resp)
	if status < 200 || status > 299 {
		msg := resp.Error
		if jsonErr != nil || msg == "" {
			msg = bodyText(body, status)
		}
		return "", endSpan(span, statusError(status, msg, "text generation"))
	}
	if jsonErr != nil {
		return "", endSpan(span, apperr.Upstream(status, "invalid script payload", false))
	}
	script := strings.TrimSpace(resp.Script)
	if script == "" {
		return "", endSpan(span, apperr.Upstream(status, "capability returned an empty script", true))
	}
	return script, nil
}

// SynthesizeSpeech asks the speech capability for audio and returns the base64 transport
// payload as received.
func (c *Client) SynthesizeSpeech(ctx context.Context, text, voiceID string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", apperr.Validation("Please enter text to convert to speech.")
	}
	if strings.TrimSpace(voiceID) == "" {
		return "", apperr.Validation("Please select a voice.")
	}

	ctx, span := c.tracer.Start(ctx, "gateway.SynthesizeSpeech", trace.WithAttributes(
		attribute.String("voice_id", voiceID),
		attribute.Int("text_chars", len(text)),
	))
	defer span.End()

	status, body, err := c.post(ctx, "/generate-voice", voiceRequest{Text: text, VoiceID: voiceID}, "speech synthesis")
	if err != nil {
		return "", endSpan(span, err)
	}
	span.SetAttributes(attribute.Int("http.status_code", status))

	if status < 200 || status > 299 {
		msg := bodyText(body, status)
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
			msg = payload.Error
		}
		return "", endSpan(span, statusError(status, msg, "speech synthesis"))
	}

	var resp voiceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", endSpan(span, apperr.Upstream(status, "invalid speech payload", false))
	}
	if strings.TrimSpace(resp.AudioContent) == "" {
		return "", endSpan(span, apperr.Upstream(status, "capability returned no audio", true))
	}
	return resp.AudioContent, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, capability string) (int, []byte, error) {
	if c.baseURL == "" {
		return 0, nil, apperr.ServiceUnavailable(capability+" capability is not configured", nil)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal %s request: %w", capability, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return 0, nil, apperr.ServiceUnavailable(capability+" capability URL is invalid", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return 0, nil, ctx.Err()
		}
		return 0, nil, apperr.ServiceUnavailable(capability+" capability is unreachable", err)
	}
	defer res.Body.Close()

	limit := int64(maxErrorBody)
	if res.StatusCode >= 200 && res.StatusCode <= 299 {
		limit = 64 << 20
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, limit))
	if err != nil {
		return 0, nil, apperr.ServiceUnavailable("read "+capability+" response", err)
	}
	return res.StatusCode, body, nil
}

func statusError(status int, msg, capability string) error {
	if status == http.StatusServiceUnavailable {
		return apperr.ServiceUnavailable(msg, nil)
	}
	if msg == "" {
		msg = capability + " failed"
	}
	return apperr.Upstream(status, msg, reliability.IsRetryableHTTPStatus(status))
}

func bodyText(body []byte, status int) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return http.StatusText(status)
	}
	return text
}

func endSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

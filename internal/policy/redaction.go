package policy

import "regexp"

var (
	bearerPattern = regexp.MustCompile(`(?i)\bbearer\s+[a-z0-9._\-]{8,}`)
	openAIPattern = regexp.MustCompile(`\bsk-[A-Za-z0-9_\-]{16,}`)
	antPattern    = regexp.MustCompile(`\bsk-ant-[A-Za-z0-9_\-]{16,}`)
	headerPattern = regexp.MustCompile(`(?i)(xi-api-key|x-api-key|api[_-]?key)(["']?\s*[:=]\s*["']?)[A-Za-z0-9._\-]{8,}`)
)

// RedactSecrets masks credentials that upstream providers sometimes echo back in error
// bodies, so they never reach clients or logs.
func RedactSecrets(input string) (redacted string, changed bool) {
	out := input

	// Anthropic keys share the sk- prefix, so they go first.
	next := antPattern.ReplaceAllString(out, "[REDACTED_KEY]")
	changed = changed || next != out
	out = next

	next = openAIPattern.ReplaceAllString(out, "[REDACTED_KEY]")
	changed = changed || next != out
	out = next

	next = bearerPattern.ReplaceAllString(out, "Bearer [REDACTED_TOKEN]")
	changed = changed || next != out
	out = next

	next = headerPattern.ReplaceAllString(out, "${1}${2}[REDACTED_KEY]")
	changed = changed || next != out
	out = next

	return out, changed
}

package policy

import (
	"strings"
	"testing"
)

func TestRedactSecrets(t *testing.T) {
	input := `Incorrect API key provided: sk-proj-abcdefghijklmnop1234. header Authorization: Bearer abc.def.ghijklmnop {"xi-api-key": "0123456789abcdef"}`
	out, changed := RedactSecrets(input)
	if !changed {
		t.Fatalf("changed = false, want true")
	}
	for _, leaked := range []string{"sk-proj-abcdefghijklmnop1234", "abc.def.ghijklmnop", "0123456789abcdef"} {
		if strings.Contains(out, leaked) {
			t.Fatalf("output still contains %q: %q", leaked, out)
		}
	}
	if !strings.Contains(out, `"xi-api-key": "[REDACTED_KEY]"`) {
		t.Fatalf("header value not masked in place: %q", out)
	}
}

func TestRedactSecretsLeavesPlainText(t *testing.T) {
	in := "voice not found"
	out, changed := RedactSecrets(in)
	if changed || out != in {
		t.Fatalf("RedactSecrets(%q) = (%q, %v), want unchanged", in, out, changed)
	}
}

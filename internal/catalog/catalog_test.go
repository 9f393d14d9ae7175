package catalog

import "testing"

func TestCanonicalNiche(t *testing.T) {
	got, ok := CanonicalNiche("  money hacks ")
	if !ok {
		t.Fatalf("CanonicalNiche() ok = false, want true")
	}
	if got != "Money Hacks" {
		t.Fatalf("CanonicalNiche() = %q, want %q", got, "Money Hacks")
	}
	if IsNiche("Crypto Moonshots") {
		t.Fatalf("IsNiche(unknown) = true, want false")
	}
	if IsNiche("") {
		t.Fatalf("IsNiche(empty) = true, want false")
	}
}

func TestLookupVoice(t *testing.T) {
	v, ok := LookupVoice("21m00Tcm4TlvDq8ikWAM")
	if !ok {
		t.Fatalf("LookupVoice() ok = false")
	}
	if v.Name != "Rachel" || v.OpenAIVoice == "" {
		t.Fatalf("unexpected voice: %+v", v)
	}
	if _, ok := LookupVoice("nope"); ok {
		t.Fatalf("LookupVoice(nope) ok = true")
	}
}

func TestListsAreCopies(t *testing.T) {
	n := Niches()
	n[0] = "changed"
	if Niches()[0] == "changed" {
		t.Fatalf("Niches() exposed internal slice")
	}
	v := Voices()
	v[0].Name = "changed"
	if Voices()[0].Name == "changed" {
		t.Fatalf("Voices() exposed internal slice")
	}
}

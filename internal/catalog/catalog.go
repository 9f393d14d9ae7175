package catalog

import "strings"

// Voice is a selectable speech voice. ID is the ElevenLabs voice id; OpenAIVoice is
// the closest built-in OpenAI voice used when speech is served by OpenAI instead.
type Voice struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	OpenAIVoice string `json:"-"`
}

var niches = []string{
	"Money Hacks",
	"Tech Facts",
	"Life Tips",
	"Fitness Motivation",
	"Psychology Facts",
	"Business Tips",
	"Food Hacks",
	"Travel Tips",
}

var voices = []Voice{
	{ID: "21m00Tcm4TlvDq8ikWAM", Name: "Rachel", Description: "Young Female, Calm", OpenAIVoice: "nova"},
	{ID: "AZnzlk1XvdvUeBnXmlld", Name: "Domi", Description: "Young Female, Strong", OpenAIVoice: "shimmer"},
	{ID: "EXAVITQu4vr4xnSDxMaL", Name: "Bella", Description: "Young Female, Sweet", OpenAIVoice: "alloy"},
	{ID: "ErXwobaYiN019PkySvjV", Name: "Antoni", Description: "Young Male, Well-rounded", OpenAIVoice: "echo"},
	{ID: "VR6AewLTigWG4xSOukaG", Name: "Arnold", Description: "Middle-aged Male, Crisp", OpenAIVoice: "fable"},
	{ID: "pNInz6obpgDQGcFmaJgB", Name: "Adam", Description: "Middle-aged Male, Deep", OpenAIVoice: "onyx"},
}

// Niches returns the recognized script categories in display order.
func Niches() []string {
	out := make([]string, len(niches))
	copy(out, niches)
	return out
}

// Voices returns the recognized voices in display order.
func Voices() []Voice {
	out := make([]Voice, len(voices))
	copy(out, voices)
	return out
}

// IsNiche reports whether label names a recognized niche. Matching ignores case and
// surrounding whitespace.
func IsNiche(label string) bool {
	_, ok := CanonicalNiche(label)
	return ok
}

// CanonicalNiche returns the catalog spelling of label.
func CanonicalNiche(label string) (string, bool) {
	label = strings.TrimSpace(label)
	for _, n := range niches {
		if strings.EqualFold(n, label) {
			return n, true
		}
	}
	return "", false
}

// LookupVoice finds a voice by id.
func LookupVoice(id string) (Voice, bool) {
	id = strings.TrimSpace(id)
	for _, v := range voices {
		if v.ID == id {
			return v, true
		}
	}
	return Voice{}, false
}

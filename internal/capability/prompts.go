package capability

import (
	"strings"
)

const (
	scriptMaxTokens   = 200
	scriptTemperature = 0.9
)

const scriptSystemPrompt = `You are a short-form social media copywriter specializing in viral TikTok and Instagram Reels content.

Your task:
- Write engaging 18-22 second spoken scripts (40-60 words)
- Include a powerful hook within the first 3 seconds
- Use short, punchy sentences
- End with "Check link in bio" as CTA
- Make it conversational and authentic
- Focus on curiosity gaps and emotional triggers

Write ONE script only in a natural speaking style.`

func scriptUserPrompt(req ScriptRequest) string {
	var b strings.Builder
	b.WriteString("Niche: ")
	b.WriteString(strings.TrimSpace(req.Niche))
	if extra := strings.TrimSpace(req.Extra); extra != "" {
		b.WriteString("\nExtra instructions: ")
		b.WriteString(extra)
	}
	b.WriteString("\n\nCreate a viral script that hooks viewers immediately and keeps them watching until the end.")
	return b.String()
}

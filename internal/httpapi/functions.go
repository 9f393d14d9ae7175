package httpapi

import (
	"errors"
	"net/http"

	"github.com/antoniostano/reelstudio/internal/capability"
)

type functionScriptRequest struct {
	Niche       string `json:"niche"`
	PromptExtra string `json:"promptExtra"`
}

type functionVoiceRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voiceId"`
}

// handleFunctionScript serves the text-generation capability. Errors are JSON
// {"error": ...}.
func (s *Server) handleFunctionScript(w http.ResponseWriter, r *http.Request) {
	var req functionScriptRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON body"})
		return
	}
	if s.capabilities == nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": capability.ErrScriptNotConfigured.Error()})
		return
	}
	script, err := s.capabilities.GenerateScript(r.Context(), capability.ScriptRequest{Niche: req.Niche, Extra: req.PromptExtra})
	if err != nil {
		respondJSON(w, capability.HTTPStatus(err), map[string]string{"error": capability.PublicMessage(err)})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"script": script})
}

// handleFunctionVoice serves the speech capability. Errors are plain text.
func (s *Server) handleFunctionVoice(w http.ResponseWriter, r *http.Request) {
	var req functionVoiceRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if s.capabilities == nil {
		http.Error(w, capability.ErrSpeechNotConfigured.Error(), http.StatusServiceUnavailable)
		return
	}
	payload, err := s.capabilities.Synthesize(r.Context(), req.Text, req.VoiceID)
	if err != nil {
		http.Error(w, capability.PublicMessage(err), capability.HTTPStatus(err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"audioContent": payload})
}

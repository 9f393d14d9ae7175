package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/antoniostano/reelstudio/internal/apperr"
	"github.com/antoniostano/reelstudio/internal/catalog"
	"github.com/antoniostano/reelstudio/internal/records"
	"github.com/antoniostano/reelstudio/internal/studio"
)

type createScriptRequest struct {
	Niche       string `json:"niche"`
	PromptExtra string `json:"prompt_extra"`
}

type createScriptResponse struct {
	studio.ScriptResult
	Saved        bool           `json:"saved"`
	PersistError *errorResponse `json:"persist_error,omitempty"`
}

type createVoiceRequest struct {
	Text     string `json:"text"`
	VoiceID  string `json:"voice_id"`
	ScriptID string `json:"script_id"`
}

type createVoiceResponse struct {
	studio.VoiceResult
	AudioURL     string         `json:"audio_url"`
	Saved        bool           `json:"saved"`
	PersistError *errorResponse `json:"persist_error,omitempty"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"niches": catalog.Niches(),
		"voices": catalog.Voices(),
	})
}

func (s *Server) handleCreateScript(w http.ResponseWriter, r *http.Request) {
	var req createScriptRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", apperr.TitleFor(apperr.KindValidation), err.Error())
		return
	}
	res, err := s.studio.RequestScript(r.Context(), identity(r), req.Niche, req.PromptExtra)
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	out := createScriptResponse{ScriptResult: res, Saved: res.Artifact != nil}
	status := http.StatusOK
	if res.PersistErr != nil {
		body := errorBody(res.PersistErr)
		out.PersistError = &body
	} else {
		status = http.StatusCreated
	}
	respondJSON(w, status, out)
}

func (s *Server) handleCreateVoice(w http.ResponseWriter, r *http.Request) {
	var req createVoiceRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", apperr.TitleFor(apperr.KindValidation), err.Error())
		return
	}
	res, err := s.studio.RequestVoice(r.Context(), identity(r), req.Text, req.VoiceID, req.ScriptID)
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	out := createVoiceResponse{
		VoiceResult: res,
		AudioURL:    "/v1/resources/" + string(res.Handle),
		Saved:       res.Artifact != nil,
	}
	status := http.StatusOK
	if res.PersistErr != nil {
		body := errorBody(res.PersistErr)
		out.PersistError = &body
	} else {
		status = http.StatusCreated
	}
	respondJSON(w, status, out)
}

func (s *Server) handleListScripts(w http.ResponseWriter, r *http.Request) {
	lib, err := s.studio.Library(r.Context(), identity(r), studio.KindScript, listFilter(r))
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"scripts": lib.Scripts})
}

func (s *Server) handleListVoiceClips(w http.ResponseWriter, r *http.Request) {
	lib, err := s.studio.Library(r.Context(), identity(r), studio.KindVoice, listFilter(r))
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"voice_clips": lib.VoiceClips})
}

func (s *Server) handleDeleteArtifact(kind studio.ArtifactKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.deleteArtifact(w, r, kind)
	}
}

func (s *Server) handleDeleteArtifactByKind(w http.ResponseWriter, r *http.Request) {
	kind, err := studio.ParseArtifactKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	s.deleteArtifact(w, r, kind)
}

func (s *Server) deleteArtifact(w http.ResponseWriter, r *http.Request, kind studio.ArtifactKind) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if err := s.studio.RequestDelete(r.Context(), identity(r), id, kind); err != nil {
		s.respondAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportAudio(w http.ResponseWriter, r *http.Request) {
	exp, err := s.studio.ExportAudio(r.Context(), identity(r), chi.URLParam(r, "id"))
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	writeAudio(w, exp.ContentType, exp.Data, fmt.Sprintf("attachment; filename=%q", exp.Filename))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.studio.RequestStats(r.Context(), identity(r))
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func listFilter(r *http.Request) records.ListFilter {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(strings.TrimSpace(q.Get("limit")))
	return records.ListFilter{Query: strings.TrimSpace(q.Get("q")), Limit: limit}
}

func writeAudio(w http.ResponseWriter, contentType string, data []byte, disposition string) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	if disposition != "" {
		w.Header().Set("Content-Disposition", disposition)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

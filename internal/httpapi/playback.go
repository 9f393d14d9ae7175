package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/antoniostano/reelstudio/internal/apperr"
	"github.com/antoniostano/reelstudio/internal/audio"
)

type playRequest struct {
	ArtifactID string `json:"artifact_id"`
	Handle     string `json:"handle"`
}

type toggleRequest struct {
	Ref string `json:"ref"`
}

func (s *Server) handlePlaybackState(w http.ResponseWriter, r *http.Request) {
	userID := identity(r)
	if userID == "" {
		s.respondAppError(w, r, apperr.Unauthenticated())
		return
	}
	respondJSON(w, http.StatusOK, s.studio.PlaybackState(userID))
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", apperr.TitleFor(apperr.KindValidation), err.Error())
		return
	}
	artifactID := strings.TrimSpace(req.ArtifactID)
	handle := strings.TrimSpace(req.Handle)
	if (artifactID == "") == (handle == "") {
		s.respondAppError(w, r, apperr.Validation("exactly one of artifact_id or handle is required"))
		return
	}

	var err error
	var state any
	if artifactID != "" {
		state, err = s.studio.RequestPlay(r.Context(), identity(r), artifactID)
	} else {
		state, err = s.studio.RequestPlayResource(r.Context(), identity(r), audio.Handle(handle))
	}
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	state, err := s.studio.RequestStop(identity(r))
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", apperr.TitleFor(apperr.KindValidation), err.Error())
		return
	}
	state, err := s.studio.RequestToggle(r.Context(), identity(r), req.Ref)
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleGetResource(w http.ResponseWriter, r *http.Request) {
	data, res, err := s.studio.OpenResource(identity(r), audio.Handle(chi.URLParam(r, "id")))
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	disposition := ""
	if r.URL.Query().Get("download") != "" {
		ext := "mp3"
		if res.MIME == audio.MIMEWAV {
			ext = "wav"
		}
		disposition = `attachment; filename="voiceover_` + string(res.Handle) + "." + ext + `"`
	}
	writeAudio(w, res.MIME, data, disposition)
}

func (s *Server) handleReleaseResource(w http.ResponseWriter, r *http.Request) {
	if err := s.studio.ReleaseResource(identity(r), audio.Handle(chi.URLParam(r, "id"))); err != nil {
		s.respondAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/antoniostano/reelstudio/internal/apperr"
	"github.com/antoniostano/reelstudio/internal/auth"
	"github.com/antoniostano/reelstudio/internal/capability"
	"github.com/antoniostano/reelstudio/internal/config"
	"github.com/antoniostano/reelstudio/internal/notify"
	"github.com/antoniostano/reelstudio/internal/observability"
	"github.com/antoniostano/reelstudio/internal/studio"
)

// Deps are the collaborators the HTTP surface dispatches to.
type Deps struct {
	Studio       *studio.Studio
	Capabilities *capability.Service
	Notices      *notify.Center
	Signer       *auth.Signer
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	// Ready reports whether backing stores answer. Nil means always ready.
	Ready     func(ctx context.Context) error
	StoreMode string
}

type Server struct {
	cfg          config.Config
	studio       *studio.Studio
	capabilities *capability.Service
	notices      *notify.Center
	signer       *auth.Signer
	metrics      *observability.Metrics
	logger       *zap.Logger
	ready        func(ctx context.Context) error
	storeMode    string
	upgrader     websocket.Upgrader
}

func New(cfg config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	signer := deps.Signer
	if signer == nil {
		signer = auth.NewSigner(cfg.AuthSecret, cfg.AuthTokenTTL)
	}
	notices := deps.Notices
	if notices == nil {
		notices = notify.NewCenter(cfg.MaxNotifications)
	}
	return &Server{
		cfg:          cfg,
		studio:       deps.Studio,
		capabilities: deps.Capabilities,
		notices:      notices,
		signer:       signer,
		metrics:      deps.Metrics,
		logger:       logger.Named("http"),
		ready:        deps.Ready,
		storeMode:    deps.StoreMode,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(cfg.CORSAllowedOrigins),
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	limit := httprate.Limit(
		s.generationRate(),
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			respondError(w, http.StatusTooManyRequests, "rate_limited", "Too many requests", "Too many generation requests. Please wait a minute.")
		}),
	)

	r.Route("/functions/v1", func(r chi.Router) {
		r.Use(limit)
		r.Post("/generate-script", s.handleFunctionScript)
		r.Post("/generate-voice", s.handleFunctionVoice)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.Middleware(s.signer, func(w http.ResponseWriter, _ *http.Request, err error) {
			if errors.Is(err, auth.ErrExpiredToken) {
				respondError(w, http.StatusUnauthorized, "token_expired", apperr.TitleFor(apperr.KindUnauthenticated), "The access token has expired. Please sign in again.")
				return
			}
			respondError(w, http.StatusUnauthorized, "invalid_token", apperr.TitleFor(apperr.KindUnauthenticated), "The access token is invalid.")
		}))

		r.Get("/catalog", s.handleCatalog)
		r.Get("/perf/latency", s.handlePerfLatency)

		r.With(limit).Post("/scripts", s.handleCreateScript)
		r.Get("/scripts", s.handleListScripts)
		r.Delete("/scripts/{id}", s.handleDeleteArtifact(studio.KindScript))

		r.With(limit).Post("/voices", s.handleCreateVoice)
		r.Get("/voices", s.handleListVoiceClips)
		r.Delete("/voices/{id}", s.handleDeleteArtifact(studio.KindVoice))
		r.Get("/voices/{id}/audio", s.handleExportAudio)

		r.Delete("/artifacts/{kind}/{id}", s.handleDeleteArtifactByKind)

		r.Get("/playback", s.handlePlaybackState)
		r.Post("/playback/play", s.handlePlay)
		r.Post("/playback/stop", s.handleStop)
		r.Post("/playback/toggle", s.handleToggle)

		r.Get("/resources/{id}", s.handleGetResource)
		r.Delete("/resources/{id}", s.handleReleaseResource)

		r.Get("/stats", s.handleStats)

		r.Get("/notifications", s.handleListNotifications)
		r.Post("/notifications/read", s.handleMarkNotificationsRead)
		r.Delete("/notifications", s.handleClearNotifications)
		r.Delete("/notifications/{id}", s.handleRemoveNotification)
		r.Get("/notifications/ws", s.handleNotificationsWS)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	scriptProvider, speechProvider := "none", "none"
	if s.capabilities != nil {
		scriptProvider = s.capabilities.ScriptProviderName()
		speechProvider = s.capabilities.SpeechProviderName()
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"script_provider": scriptProvider,
		"speech_provider": speechProvider,
		"store_mode":      s.storeModeOrDefault(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.Warn("readiness check failed", zap.Error(err))
			respondJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":     "not_ready",
				"store_mode": s.storeModeOrDefault(),
			})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ready",
		"store_mode": s.storeModeOrDefault(),
	})
}

func (s *Server) storeModeOrDefault() string {
	if strings.TrimSpace(s.storeMode) == "" {
		return "in-memory"
	}
	return s.storeMode
}

func (s *Server) generationRate() int {
	if s.cfg.GenerationRatePerMin <= 0 {
		return 20
	}
	return s.cfg.GenerationRatePerMin
}

func (s *Server) allowedOrigins() []string {
	if len(s.cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return s.cfg.CORSAllowedOrigins
}

// originChecker allows same-origin browsers, non-browser clients without an Origin and
// any explicitly configured origin.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Title string `json:"title,omitempty"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, title, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code, Title: title})
}

// respondAppError answers with the status and title of err's kind. Errors outside the
// taxonomy are reported as internal without their detail.
func (s *Server) respondAppError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody(err)
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}
	respondJSON(w, status, body)
}

func errorBody(err error) errorResponse {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return errorResponse{Error: "The request was cancelled.", Code: "cancelled", Title: apperr.TitleFor("")}
		}
		return errorResponse{Error: "internal error", Code: "internal_error", Title: apperr.TitleFor("")}
	}
	msg := ae.Message
	if ae.Kind == apperr.KindPersistence {
		msg = "Could not " + ae.Message + "."
	}
	return errorResponse{Error: msg, Code: string(ae.Kind), Title: ae.Title()}
}

func identity(r *http.Request) string {
	return auth.FromContext(r.Context()).UserID
}

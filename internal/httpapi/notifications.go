package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/antoniostano/reelstudio/internal/apperr"
	"github.com/antoniostano/reelstudio/internal/notify"
	"github.com/antoniostano/reelstudio/internal/protocol"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsIdleTimeout  = 120 * time.Second
	wsPingInterval = 45 * time.Second
)

type markReadRequest struct {
	ID string `json:"id"`
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	userID := identity(r)
	if userID == "" {
		s.respondAppError(w, r, apperr.Unauthenticated())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"notices": s.notices.List(userID),
		"unread":  s.notices.UnreadCount(userID),
	})
}

func (s *Server) handleMarkNotificationsRead(w http.ResponseWriter, r *http.Request) {
	userID := identity(r)
	if userID == "" {
		s.respondAppError(w, r, apperr.Unauthenticated())
		return
	}
	var req markReadRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", apperr.TitleFor(apperr.KindValidation), err.Error())
		return
	}
	marked := s.notices.MarkRead(userID, strings.TrimSpace(req.ID))
	respondJSON(w, http.StatusOK, map[string]any{
		"marked": marked,
		"unread": s.notices.UnreadCount(userID),
	})
}

func (s *Server) handleClearNotifications(w http.ResponseWriter, r *http.Request) {
	userID := identity(r)
	if userID == "" {
		s.respondAppError(w, r, apperr.Unauthenticated())
		return
	}
	s.notices.Clear(userID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveNotification(w http.ResponseWriter, r *http.Request) {
	userID := identity(r)
	if userID == "" {
		s.respondAppError(w, r, apperr.Unauthenticated())
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if !s.notices.Remove(userID, id) {
		s.respondAppError(w, r, apperr.NotFound("notification", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleNotificationsWS streams the caller's notices, statistics changes and playback
// transitions. All socket writes happen on the writer goroutine.
func (s *Server) handleNotificationsWS(w http.ResponseWriter, r *http.Request) {
	userID := identity(r)
	if userID == "" {
		s.respondAppError(w, r, apperr.Unauthenticated())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events, unsubscribe := s.notices.Subscribe(userID, 64)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	replies := make(chan any, 16)
	replies <- protocol.SystemEvent{
		Type:   protocol.TypeSystemEvent,
		Code:   "connected",
		Detail: strconv.Itoa(s.notices.UnreadCount(userID)),
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ping := time.NewTicker(wsPingInterval)
		defer ping.Stop()
		for {
			var msg any
			select {
			case <-ctx.Done():
				return
			case <-ping.C:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					cancel()
					return
				}
				continue
			case ev, ok := <-events:
				if !ok {
					cancel()
					return
				}
				msg = wireEvent(ev)
			case msg = <-replies:
			}
			if msg == nil {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				s.logger.Debug("notification write failed", zap.String("user_id", userID), zap.Error(err))
				cancel()
				return
			}
		}
	}()

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		if msgType != websocket.TextMessage {
			continue
		}
		reply := s.handleClientMessage(userID, data)
		if reply == nil {
			continue
		}
		select {
		case replies <- reply:
		default:
			// Keep websocket writes single-threaded; drop if the reply queue is saturated.
		}
	}

	cancel()
	<-writerDone
}

func (s *Server) handleClientMessage(userID string, data []byte) any {
	parsed, err := protocol.ParseClientMessage(data)
	if err != nil {
		return protocol.ErrorEvent{
			Type:   protocol.TypeErrorEvent,
			Code:   "invalid_client_message",
			Detail: err.Error(),
		}
	}
	ctrl, ok := parsed.(protocol.ClientControl)
	if !ok {
		return nil
	}
	switch ctrl.Action {
	case protocol.ActionMarkRead:
		s.notices.MarkRead(userID, strings.TrimSpace(ctrl.NoticeID))
		return protocol.SystemEvent{Type: protocol.TypeSystemEvent, Code: "unread", Detail: strconv.Itoa(s.notices.UnreadCount(userID))}
	case protocol.ActionRemove:
		s.notices.Remove(userID, strings.TrimSpace(ctrl.NoticeID))
		return protocol.SystemEvent{Type: protocol.TypeSystemEvent, Code: "unread", Detail: strconv.Itoa(s.notices.UnreadCount(userID))}
	case protocol.ActionClear:
		s.notices.Clear(userID)
		return protocol.SystemEvent{Type: protocol.TypeSystemEvent, Code: "cleared"}
	case protocol.ActionPing:
		return protocol.SystemEvent{Type: protocol.TypeSystemEvent, Code: "pong"}
	default:
		return nil
	}
}

// wireEvent renders a center event as a websocket message.
func wireEvent(ev notify.Event) any {
	switch ev.Kind {
	case notify.EventNotice:
		if ev.Notice == nil {
			return nil
		}
		n := ev.Notice
		return protocol.Notice{
			Type:      protocol.TypeNotice,
			ID:        n.ID,
			Title:     n.Title,
			Message:   n.Message,
			Variant:   variant(n.Type),
			Read:      n.Read,
			Timestamp: n.Timestamp,
			Unread:    ev.Unread,
		}
	case notify.EventStatsChanged:
		kind, _ := ev.Data.(string)
		return protocol.StatsChanged{Type: protocol.TypeStatsChanged, Kind: kind}
	case notify.EventPlayback:
		if state, ok := ev.Data.(protocol.PlaybackState); ok {
			return state
		}
		return nil
	default:
		return nil
	}
}

func variant(t notify.Type) string {
	if t == notify.TypeError {
		return "destructive"
	}
	return string(t)
}

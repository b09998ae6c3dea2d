package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/agileboard/internal/domain"
	"github.com/gosuda/agileboard/internal/server/middleware"
	redisstore "github.com/gosuda/agileboard/internal/store/redis"
)

// accessRecheck is how often an idle connection re-validates membership.
const accessRecheck = 30 * time.Second

// Broker is the pub/sub transport behind the hub. *redis.PubSub and
// *memory.PubSub satisfy it.
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// Hub streams board events to WebSocket clients.
type Hub struct {
	broker         Broker
	projects       domain.ProjectRepository
	members        domain.MemberRepository
	originPatterns []string
}

// NewHub creates a new WebSocket hub. originPatterns lists the extra hosts
// allowed to open cross-origin connections (see websocket.AcceptOptions).
func NewHub(broker Broker, projects domain.ProjectRepository, members domain.MemberRepository, originPatterns ...string) *Hub {
	return &Hub{
		broker:         broker,
		projects:       projects,
		members:        members,
		originPatterns: originPatterns,
	}
}

// ServeBoard handles WebSocket connections for kanban board updates.
// The caller must own or be a member of the project for as long as the
// connection is open: access is checked again before every event and on a
// timer, and the socket is closed with StatusPolicyViolation once it is gone.
func (h *Hub) ServeBoard(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	projectID, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		http.Error(w, "invalid project id", http.StatusBadRequest)
		return
	}

	if _, _, err = domain.ResolveProjectRole(r.Context(), h.projects, h.members, session.UserID, projectID); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			http.Error(w, "project not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrForbidden):
			http.Error(w, "not a member of this project", http.StatusForbidden)
		default:
			log.Error().Err(err).Msg("websocket access check")
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	// Clients never send; CloseRead handles control frames and cancels ctx
	// when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	messages, cleanup, err := h.broker.Subscribe(ctx, redisstore.BoardChannel(projectID))
	if err != nil {
		log.Error().Err(err).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	ticker := time.NewTicker(accessRecheck)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case <-ticker.C:
			if !h.stillAllowed(ctx, conn, session.UserID, projectID) {
				return
			}
		case msg, msgOK := <-messages:
			if !msgOK {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if !h.stillAllowed(ctx, conn, session.UserID, projectID) {
				return
			}
			if writeErr := conn.Write(ctx, websocket.MessageText, msg); writeErr != nil {
				log.Debug().Err(writeErr).Msg("websocket write")
				return
			}
		}
	}
}

// stillAllowed re-resolves the user's access and closes conn when it is lost.
func (h *Hub) stillAllowed(ctx context.Context, conn *websocket.Conn, userID, projectID uuid.UUID) bool {
	_, _, err := domain.ResolveProjectRole(ctx, h.projects, h.members, userID, projectID)
	switch {
	case err == nil:
		return true
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrForbidden):
		log.Info().Str("user_id", userID.String()).Str("project_id", projectID.String()).
			Msg("board access revoked; closing websocket")
		_ = conn.Close(websocket.StatusPolicyViolation, "access revoked")
	case ctx.Err() != nil:
		_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
	default:
		log.Error().Err(err).Msg("websocket access recheck")
		_ = conn.Close(websocket.StatusInternalError, "access check failed")
	}
	return false
}

// PublishBoardEvent broadcasts ev to everyone watching the project board.
func (h *Hub) PublishBoardEvent(ctx context.Context, ev domain.BoardEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("ws.Hub.PublishBoardEvent: marshal: %w", err)
	}
	if err := h.broker.Publish(ctx, redisstore.BoardChannel(ev.ProjectID), payload); err != nil {
		return fmt.Errorf("ws.Hub.PublishBoardEvent: %w", err)
	}
	return nil
}

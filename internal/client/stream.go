package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/agileboard/internal/domain"
)

const eventBuffer = 32

// SubscribeBoard streams live events for a project board. The channel is
// closed when ctx ends or the server drops the connection.
func (c *Client) SubscribeBoard(ctx context.Context, projectID uuid.UUID) (<-chan domain.BoardEvent, error) {
	u, err := c.wsURL("/ws/board/" + projectID.String())
	if err != nil {
		return nil, fmt.Errorf("client.SubscribeBoard: %w", err)
	}

	h := http.Header{}
	c.authorize(h)
	conn, resp, err := websocket.Dial(ctx, u, &websocket.DialOptions{HTTPHeader: h})
	if err != nil {
		if resp != nil && resp.StatusCode >= 400 {
			defer resp.Body.Close()
			return nil, fmt.Errorf("client.SubscribeBoard: %w", decodeError(resp))
		}
		return nil, fmt.Errorf("client.SubscribeBoard: dial: %w", err)
	}

	events := make(chan domain.BoardEvent, eventBuffer)
	go func() {
		defer close(events)
		defer conn.CloseNow()
		for {
			_, data, readErr := conn.Read(ctx)
			if readErr != nil {
				if ctx.Err() == nil && websocket.CloseStatus(readErr) != websocket.StatusNormalClosure && !errors.Is(readErr, context.Canceled) {
					log.Warn().Err(readErr).Str("project_id", projectID.String()).Msg("board stream closed")
				}
				return
			}
			var ev domain.BoardEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				log.Warn().Err(err).Msg("skipping malformed board event")
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}

func (c *Client) wsURL(path string) (string, error) {
	switch {
	case strings.HasPrefix(c.baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(c.baseURL, "https://") + path, nil
	case strings.HasPrefix(c.baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(c.baseURL, "http://") + path, nil
	default:
		return "", fmt.Errorf("unsupported base URL %q", c.baseURL)
	}
}

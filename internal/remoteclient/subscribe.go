package remoteclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/joshuabates/tina-daemon/internal/models"
)

// SubscribePendingActions opens a push subscription for nodeID and returns a
// channel of parsed action batches plus an error channel. Each inbound
// websocket message is parsed as an array of inbound actions; malformed
// elements within a batch are skipped rather than failing the whole batch.
//
// The original daemon's subscription does not reconnect after the stream
// ends (see SPEC_FULL.md §9, Open Question resolution) — on any read error
// or normal closure this function logs nothing itself; it closes both
// channels and returns. The caller (internal/supervisor) is responsible for
// deciding the process continues running with no further actions arriving,
// matching the documented behavior.
func (c *Client) SubscribePendingActions(ctx context.Context, nodeID string) (<-chan []models.InboundAction, <-chan error, error) {
	wsURL, err := toWebSocketURL(c.baseURL, "/actions/subscribe", nodeID)
	if err != nil {
		return nil, nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, nil, &models.TransportError{Op: "subscribe_pending_actions", Err: err}
	}

	actions := make(chan []models.InboundAction)
	errs := make(chan error, 1)

	go func() {
		defer close(actions)
		defer close(errs)
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				errs <- err
				return
			}

			var raw []json.RawMessage
			if err := json.Unmarshal(data, &raw); err != nil {
				errs <- fmt.Errorf("subscribe_pending_actions: malformed batch: %w", err)
				continue
			}

			batch := make([]models.InboundAction, 0, len(raw))
			for _, r := range raw {
				var action models.InboundAction
				if err := json.Unmarshal(r, &action); err != nil {
					continue // malformed element: skip, per spec §4.H
				}
				batch = append(batch, action)
			}

			select {
			case actions <- batch:
			case <-ctx.Done():
				return
			}
		}
	}()

	return actions, errs, nil
}

func toWebSocketURL(baseURL, path, nodeID string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme %q for websocket subscription", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	q := u.Query()
	q.Set("node_id", nodeID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

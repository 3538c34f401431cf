package telegram

import (
	"context"
	"fmt"

	"telereader/pkg/telegram/types"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// subscribeRequest is the first frame sent on a new event stream.
type subscribeRequest struct {
	Channels []string `json:"channels"`
}

// Subscribe opens the realtime event stream. Events are delivered in
// the order the gateway emits them. The returned events channel closes
// when the stream ends; a connection-level failure (as opposed to ctx
// cancellation) is reported once on the error channel before close.
// There is no reconnect: a lost connection is fatal to the caller.
func (c *GatewayClient) Subscribe(ctx context.Context, channelIDs []string) (<-chan types.Event, <-chan error, error) {
	opts := &websocket.DialOptions{}
	if c.apiToken != "" {
		opts.HTTPHeader = map[string][]string{
			"Authorization": {"Bearer " + c.apiToken},
		}
	}

	conn, _, err := websocket.Dial(ctx, c.websocketURL, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial event stream: %w", err)
	}
	conn.SetReadLimit(1 << 20)

	if err := wsjson.Write(ctx, conn, subscribeRequest{Channels: channelIDs}); err != nil {
		conn.Close(websocket.StatusInternalError, "subscribe failed")
		return nil, nil, fmt.Errorf("failed to send subscribe request: %w", err)
	}

	events := make(chan types.Event)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)
		defer conn.Close(websocket.StatusNormalClosure, "")

		for {
			var ev types.Event
			if err := wsjson.Read(ctx, conn, &ev); err != nil {
				if ctx.Err() != nil {
					return
				}
				errs <- fmt.Errorf("event stream closed: %w", err)
				return
			}

			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	c.logger.WithField("channels", len(channelIDs)).Info("Subscribed to event stream")
	return events, errs, nil
}

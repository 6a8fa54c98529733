package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/coder/websocket"

	"github.com/teamtrack/volley-live-backend/internal/auth"
	"github.com/teamtrack/volley-live-backend/pkg/types"
)

// Conn is one live transport to the server. The supervisor owns exactly one
// at a time and replaces it wholesale on reconnect.
type Conn interface {
	ReadEvent(ctx context.Context) (types.ServerEvent, error)
	Send(ctx context.Context, msg types.ClientMessage) error
	Close() error
}

// Dialer opens a Conn. Injected so the supervisor can be tested without a
// network.
type Dialer interface {
	Dial(ctx context.Context, serverURL string, token auth.Token) (Conn, error)
}

// WebsocketDialer dials the server's /ws endpoint. The token's expiry is
// checked before dialing: presenting a credential we already know is expired
// only wastes a round trip.
type WebsocketDialer struct {
	HandshakeTimeout time.Duration
}

func (d WebsocketDialer) Dial(ctx context.Context, serverURL string, token auth.Token) (Conn, error) {
	if token.Expired(time.Now()) {
		return nil, auth.ErrCredentialExpired
	}

	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	q := u.Query()
	q.Set("token", token.Value)
	u.RawQuery = q.Encode()

	timeout := d.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", serverURL, err)
	}
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadEvent(ctx context.Context) (types.ServerEvent, error) {
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		return types.ServerEvent{}, err
	}
	var ev types.ServerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return types.ServerEvent{}, fmt.Errorf("decode event: %w", err)
	}
	return ev, nil
}

func (c *wsConn) Send(ctx context.Context, msg types.ClientMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.conn.Write(ctx, websocket.MessageText, payload)
}

func (c *wsConn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}

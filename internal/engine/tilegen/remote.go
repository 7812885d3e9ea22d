package tilegen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Remote is a Transport that forwards requests to a generation server over a
// websocket, one msgpack-encoded message per binary frame.
type Remote struct {
	conn      *websocket.Conn
	log       *slog.Logger
	writeMu   sync.Mutex
	responses chan Response
	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to a generation server at url (ws:// or wss://).
func Dial(ctx context.Context, url string, log *slog.Logger) (*Remote, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial generation server %s: %w", url, err)
	}

	r := &Remote{
		conn:      conn,
		log:       log,
		responses: make(chan Response, 256),
		done:      make(chan struct{}),
	}
	go r.readLoop()
	return r, nil
}

// Send writes req to the server.
func (r *Remote) Send(ctx context.Context, req Request) error {
	select {
	case <-r.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	data, err := encode(&req)
	if err != nil {
		return err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if err := r.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("write tile request: %w", err)
	}
	return nil
}

// Responses returns decoded server responses. It is closed when the connection ends.
func (r *Remote) Responses() <-chan Response {
	return r.responses
}

// Close shuts down the connection.
func (r *Remote) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.done)

		r.writeMu.Lock()
		_ = r.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		r.writeMu.Unlock()

		err = r.conn.Close()
	})
	return err
}

func (r *Remote) readLoop() {
	defer close(r.responses)

	for {
		_, data, err := r.conn.ReadMessage()
		if err != nil {
			select {
			case <-r.done:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) && !errors.Is(err, websocket.ErrCloseSent) {
					r.log.Error("read tile response", "error", err)
				}
			}
			return
		}

		var resp Response
		if err := decode(data, &resp); err != nil {
			r.log.Error("bad tile response", "error", err)
			continue
		}

		select {
		case r.responses <- resp:
		case <-r.done:
			return
		}
	}
}

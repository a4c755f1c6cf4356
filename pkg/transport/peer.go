package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	ErrSlowConsumer = errors.New("outbound queue full")
	ErrPeerClosed   = errors.New("peer closed")
)

// peer is one websocket connection joined to one room. Outbound frames go through a
// bounded queue drained by a single writer so they leave in the order they were queued.
type peer struct {
	id      string
	conn    *websocket.Conn
	opts    Options
	log     *slog.Logger
	send    chan []byte
	done    chan struct{}
	closing sync.Once
}

func newPeer(id string, conn *websocket.Conn, opts Options, log *slog.Logger) *peer {
	return &peer{
		id:   id,
		conn: conn,
		opts: opts,
		log:  log.With("conn", id),
		send: make(chan []byte, opts.OutboundBuffer),
		done: make(chan struct{}),
	}
}

func (p *peer) ID() string {
	return p.id
}

// Send queues msg without blocking. A peer that cannot keep up is closed rather than
// allowed to skip updates.
func (p *peer) Send(msg []byte) error {
	select {
	case <-p.done:
		return ErrPeerClosed
	default:
	}
	select {
	case p.send <- msg:
		return nil
	default:
		p.log.Warn("outbound queue full, closing", "queued", len(p.send))
		p.close()
		return ErrSlowConsumer
	}
}

func (p *peer) close() {
	p.closing.Do(func() {
		close(p.done)
	})
}

// closeWith sends a close frame with code and reason, then stops the peer.
func (p *peer) closeWith(code int, reason string) {
	deadline := time.Now().Add(p.opts.WriteTimeout)
	if err := p.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline); err != nil {
		p.log.Debug("failed to write close frame", "err", err)
	}
	p.close()
}

func (p *peer) write(messageType int, data []byte) error {
	if err := p.conn.SetWriteDeadline(time.Now().Add(p.opts.WriteTimeout)); err != nil {
		return err
	}
	return p.conn.WriteMessage(messageType, data)
}

// writeLoop drains the send queue and keeps the connection alive with pings until the
// peer is closed or ctx ends.
func (p *peer) writeLoop(ctx context.Context) {
	defer p.conn.Close()
	defer p.close()

	t := time.NewTicker(p.opts.PingInterval)
	defer t.Stop()
	for {
		select {
		case msg := <-p.send:
			if err := p.write(websocket.TextMessage, msg); err != nil {
				p.log.Debug("failed to write message", "err", err)
				return
			}
		case <-t.C:
			if err := p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(p.opts.WriteTimeout)); err != nil {
				p.log.Debug("failed to write ping", "err", err)
				return
			}
		case <-p.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// readLoop hands every text frame to handle until the connection fails or is closed.
// Other frame types are ignored.
func (p *peer) readLoop(handle func(msg []byte)) error {
	p.conn.SetReadLimit(p.opts.MaxMessageSize)
	pongWait := p.opts.PingInterval * 2
	_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, msg, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("failed to read message: %w", err)
		}
		switch mt {
		case websocket.TextMessage:
			handle(msg)
		default:
		}
	}
}

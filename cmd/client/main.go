package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/astromechza/toggle-rooms/pkg/room"
	"github.com/astromechza/toggle-rooms/pkg/session"
)

func main() {
	if err := mainInner(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func mainInner() error {
	addrVar := flag.String("addr", "127.0.0.1:8080", "the address to request on")
	roomVar := flag.String("room", "default", "the room to join")
	userVar := flag.String("user", uuid.NewString(), "the user id attached to actions")
	maxWaitVar := flag.Duration("max-wait", 5*time.Second, "upper bound of the random delay between toggles, 0 to only watch")
	flag.Parse()

	u := url.URL{Scheme: "ws", Host: *addrVar}
	u = *u.JoinPath("rooms", *roomVar, "ws")
	slog.Info("Connecting", "url", u.String(), "user", *userVar)
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to dial: %w", err)
	}
	defer conn.Close()

	c := &client{conn: conn, userID: *userVar}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wg := new(sync.WaitGroup)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		if err := c.readUpdates(); err != nil {
			slog.Error("stopped reading", "err", err)
		}
	}()

	if *maxWaitVar > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.toggleRandomlyContinuously(ctx, *maxWaitVar)
		}()
	}

	exit := make(chan os.Signal, 1) // we need to reserve to buffer size 1, so the notifier are not blocked
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-exit:
		slog.Info("Signal caught", "sig", sig)
	case <-ctx.Done():
	}
	cancel()

	c.mu.Lock()
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.mu.Unlock()
	_ = conn.Close()
	wg.Wait()
	return nil
}

type client struct {
	conn   *websocket.Conn
	userID string
	// gorilla connections allow one concurrent writer
	mu sync.Mutex
}

func (c *client) send(action session.Action) error {
	raw, err := session.MarshalAction(action)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, raw)
}

func (c *client) readUpdates() error {
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("failed to read message: %w", err)
		}
		var env room.Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			slog.Error("failed to decode update", "err", err)
			continue
		}
		if len(env.Action) == 0 {
			slog.Info("joined", "conn", env.UserID, "state", env.State)
			continue
		}
		slog.Info("state update", "from", env.FromUserID, "isToggled", env.State.IsToggled, "updatedAt", env.State.UpdatedAt, "action", string(env.Action))
	}
}

func (c *client) toggleRandomlyContinuously(ctx context.Context, maxWait time.Duration) {
	for {
		t := time.NewTimer(time.Second + time.Duration(rand.Int63n(int64(maxWait))))
		select {
		case <-t.C:
			if err := c.send(session.ToggleSwitch{UserID: c.userID}); err != nil {
				slog.Error("failed to toggle", "err", err)
			} else {
				slog.Info("toggled")
			}
		case <-ctx.Done():
			t.Stop()
			slog.Info("stopping scheduled toggle")
			return
		}
	}
}

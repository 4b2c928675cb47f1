// Package feed is the client side of the game server's broadcast
// channel. The server pushes full-state frames; the client sends
// fire-and-forget action frames and may receive a synchronous ack
// only when a frame is structurally rejected.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"mogul/internal/game"
	"mogul/internal/market"
	"mogul/internal/protocol"
)

// AckWindow bounds how long Submit waits for a synchronous ack before
// concluding the server had nothing to say. Most actions get no ack.
const AckWindow = 250 * time.Millisecond

// Envelope is the wire frame shared with the server.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type joinPayload struct {
	Name string `json:"name"`
}

type actionPayload struct {
	RequestID string  `json:"request_id"`
	Type      string  `json:"type"`
	Owner     string  `json:"owner"`
	Actor     string  `json:"actor"`
	Amount    float64 `json:"amount"`
}

type rulesPayload struct {
	RequestID string           `json:"request_id"`
	Owner     string           `json:"owner"`
	Rules     market.PoolRules `json:"rules"`
}

type ackPayload struct {
	RequestID string `json:"request_id"`
	OK        bool   `json:"ok"`
	Message   string `json:"message"`
}

// Client owns one websocket connection to the lobby.
type Client struct {
	conn *websocket.Conn
	log  *slog.Logger

	writeMu sync.Mutex
	latest  atomic.Pointer[game.Snapshot]

	ackMu   sync.Mutex
	pending map[string]chan ackPayload

	subMu sync.Mutex
	subs  []chan *game.Snapshot
}

// Dial connects and identifies the player to the lobby.
func Dial(ctx context.Context, url, playerName string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := &Client{
		conn:    conn,
		log:     slog.Default(),
		pending: make(map[string]chan ackPayload),
	}
	if err := c.write("join", joinPayload{Name: playerName}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("join: %w", err)
	}
	return c, nil
}

// Run is the read loop. It decodes state frames into the latest
// snapshot, fans them out to subscribers, and routes acks back to
// their waiting Submit calls. Returns when the connection drops or
// the context is cancelled.
func (c *Client) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		c.conn.Close()
	}()
	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("feed read: %w", err)
		}
		switch env.Type {
		case "state":
			snap, err := game.DecodeSnapshot(env.Payload)
			if err != nil {
				c.log.Warn("bad state frame", "err", err)
				continue
			}
			c.latest.Store(snap)
			c.fanOut(snap)
		case "ack":
			var ack ackPayload
			if err := json.Unmarshal(env.Payload, &ack); err != nil {
				c.log.Warn("bad ack frame", "err", err)
				continue
			}
			c.routeAck(ack)
		default:
			// Chat, dice, lobby chatter: other subsystems' frames.
		}
	}
}

// Latest returns the most recent snapshot, nil before the first frame.
func (c *Client) Latest() *game.Snapshot {
	return c.latest.Load()
}

// Subscribe registers a snapshot channel. Slow subscribers miss
// frames rather than stalling the read loop.
func (c *Client) Subscribe() <-chan *game.Snapshot {
	ch := make(chan *game.Snapshot, 1)
	c.subMu.Lock()
	c.subs = append(c.subs, ch)
	c.subMu.Unlock()
	return ch
}

// Submit writes an action frame and waits at most AckWindow for a
// synchronous ack. A nil Ack with nil error means the frame went out
// and the server stayed silent, which is the expected case.
func (c *Client) Submit(ctx context.Context, action protocol.Action) (*protocol.Ack, error) {
	payload := actionPayload{
		RequestID: action.RequestID,
		Type:      action.Type(),
		Owner:     action.Owner,
		Actor:     action.Actor,
		Amount:    action.Amount,
	}
	ch := c.expectAck(action.RequestID)
	defer c.forgetAck(action.RequestID)

	if err := c.write("action", payload); err != nil {
		return nil, fmt.Errorf("submit %s: %w", action.Type(), err)
	}
	return c.awaitAck(ctx, ch)
}

// SubmitRules pushes a guard-rail update for the player's own pool
// over the same channel.
func (c *Client) SubmitRules(ctx context.Context, owner string, rules market.PoolRules) (*protocol.Ack, error) {
	payload := rulesPayload{RequestID: newRequestID(), Owner: owner, Rules: rules}
	ch := c.expectAck(payload.RequestID)
	defer c.forgetAck(payload.RequestID)

	if err := c.write("rules", payload); err != nil {
		return nil, fmt.Errorf("submit rules: %w", err)
	}
	return c.awaitAck(ctx, ch)
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func newRequestID() string {
	return uuid.NewString()
}

func (c *Client) write(frameType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(Envelope{Type: frameType, Payload: raw})
}

func (c *Client) awaitAck(ctx context.Context, ch <-chan ackPayload) (*protocol.Ack, error) {
	timer := time.NewTimer(AckWindow)
	defer timer.Stop()
	select {
	case ack := <-ch:
		return &protocol.Ack{OK: ack.OK, Message: ack.Message}, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) expectAck(requestID string) chan ackPayload {
	ch := make(chan ackPayload, 1)
	c.ackMu.Lock()
	c.pending[requestID] = ch
	c.ackMu.Unlock()
	return ch
}

func (c *Client) forgetAck(requestID string) {
	c.ackMu.Lock()
	delete(c.pending, requestID)
	c.ackMu.Unlock()
}

func (c *Client) routeAck(ack ackPayload) {
	c.ackMu.Lock()
	ch := c.pending[ack.RequestID]
	c.ackMu.Unlock()
	if ch != nil {
		select {
		case ch <- ack:
		default:
		}
	}
}

func (c *Client) fanOut(snap *game.Snapshot) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
			// Drop the stale frame; the subscriber will catch the next.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

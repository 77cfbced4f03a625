// Package gateway streams trading events to WebSocket clients.
//
// Every event is wrapped in an envelope {"channel","data","ts","seq"} with a
// hub-wide monotonic seq, kept in a replay buffer, and fanned out to the
// connected clients whose subscriptions match the channel. Slow clients
// drop messages instead of blocking the trading loop.
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"scalper/internal/model"
)

// Channel names used by the hub.
const (
	ChannelSignalPrefix = "signal:"
	ChannelTradePrefix  = "trade:"
	ChannelCycle        = "cycle"
)

const (
	defaultReplaySize = 1000
	clientSendBuffer  = 256
)

// Hub manages WebSocket clients and fan-out.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	seq     int64
	replay  *ReplayBuffer

	upgrader  websocket.Upgrader
	now       func() time.Time
	onClients func(int)
	logger    *slog.Logger
}

// NewHub creates a hub retaining replaySize envelopes for reconnecting
// clients. replaySize <= 0 uses 1000.
func NewHub(replaySize int, logger *slog.Logger) *Hub {
	if replaySize <= 0 {
		replaySize = defaultReplaySize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*Client]bool),
		replay:  NewReplayBuffer(replaySize),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		now:    time.Now,
		logger: logger.With(slog.String("component", "gateway")),
	}
}

// OnClientsChanged registers a callback receiving the client count after
// every connect and disconnect.
func (h *Hub) OnClientsChanged(fn func(int)) { h.onClients = fn }

// Publish wraps data in an envelope and fans it out. data must be JSON.
// It returns the envelope's seq.
func (h *Hub) Publish(channel string, data []byte) int64 {
	h.mu.Lock()
	h.seq++
	seq := h.seq
	h.mu.Unlock()

	buf := buildEnvelope(channel, data, h.now().UTC(), seq)
	h.replay.Push(seq, channel, buf)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if !client.matches(channel) {
			continue
		}
		select {
		case client.send <- buf:
		default:
			h.logger.Debug("client send buffer full, dropping", slog.String("channel", channel))
		}
	}
	return seq
}

// PublishSignal streams a strategy signal.
func (h *Hub) PublishSignal(_ context.Context, sig model.Signal) error {
	data, err := sig.JSON()
	if err != nil {
		return err
	}
	h.Publish(ChannelSignalPrefix+sig.Symbol, data)
	return nil
}

// PublishTrade streams an executed order.
func (h *Hub) PublishTrade(_ context.Context, o *model.OrderResult) error {
	data, err := o.JSON()
	if err != nil {
		return err
	}
	h.Publish(ChannelTradePrefix+o.Symbol, data)
	return nil
}

// PublishCycle streams a cycle summary.
func (h *Hub) PublishCycle(_ context.Context, r model.CycleReport) error {
	data, err := r.JSON()
	if err != nil {
		return err
	}
	h.Publish(ChannelCycle, data)
	return nil
}

// Seq returns the last assigned sequence number.
func (h *Hub) Seq() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.seq
}

// Replay returns the buffered envelopes with seq in [from, to].
func (h *Hub) Replay(from, to int64) [][]byte {
	entries := h.replay.Range(from, to)
	out := make([][]byte, len(entries))
	for i, e := range entries {
		out[i] = e.Data
	}
	return out
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("ws client connected", slog.Int("clients", count))
	if h.onClients != nil {
		h.onClients(count)
	}
}

// RemoveClient unregisters a client and closes its send channel.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("ws client disconnected", slog.Int("clients", count))
	if h.onClients != nil {
		h.onClients(count)
	}
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		c.conn.Close()
	}
}

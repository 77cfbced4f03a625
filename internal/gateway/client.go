package gateway

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Client represents a single WebSocket peer.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	// Channel prefixes the client wants; empty means everything.
	subMu sync.RWMutex
	subs  []string
}

// clientMsg is what clients send: a subscription change or a ping.
type clientMsg struct {
	Type     string   `json:"type"` // SUBSCRIBE, UNSUBSCRIBE
	Channels []string `json:"channels"`
	Ping     int64    `json:"ping"`
}

func (c *Client) matches(channel string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	if len(c.subs) == 0 {
		return true
	}
	for _, p := range c.subs {
		if strings.HasPrefix(channel, p) {
			return true
		}
	}
	return false
}

func (c *Client) subscribe(prefixes []string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, p := range prefixes {
		dup := false
		for _, s := range c.subs {
			if s == p {
				dup = true
				break
			}
		}
		if !dup {
			c.subs = append(c.subs, p)
		}
	}
}

func (c *Client) unsubscribe(prefixes []string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	kept := c.subs[:0]
	for _, s := range c.subs {
		drop := false
		for _, p := range prefixes {
			if s == p {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, s)
		}
	}
	c.subs = kept
}

// enqueue is only called from readPump, before RemoveClient closes send.
func (c *Client) enqueue(msg []byte) {
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// Coalesce queued messages into one frame, newline separated.
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(msg)
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMsg
		if json.Unmarshal(raw, &msg) != nil {
			continue
		}
		switch msg.Type {
		case "SUBSCRIBE":
			c.subscribe(msg.Channels)
		case "UNSUBSCRIBE":
			c.unsubscribe(msg.Channels)
		default:
			if msg.Ping > 0 {
				pong, _ := json.Marshal(map[string]interface{}{
					"type":      "pong",
					"ping":      msg.Ping,
					"server_ts": time.Now().UnixMilli(),
				})
				c.enqueue(pong)
			}
		}
	}
}

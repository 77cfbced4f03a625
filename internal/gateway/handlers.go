package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

// ServeHTTP upgrades the request to a WebSocket. Query parameters:
//
//	since=<seq>       replay buffered envelopes after seq before live data
//	channels=a,b      channel prefixes to receive (default all)
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", slog.Any("error", err))
		return
	}
	conn.EnableWriteCompression(true)

	c := &Client{
		conn: conn,
		send: make(chan []byte, clientSendBuffer),
		hub:  h,
	}
	if ch := r.URL.Query().Get("channels"); ch != "" {
		c.subscribe(strings.Split(ch, ","))
	}

	// Replay is queued before registration so it precedes live envelopes.
	if s := r.URL.Query().Get("since"); s != "" {
		if since, err := strconv.ParseInt(s, 10, 64); err == nil {
			for _, e := range h.replay.Since(since) {
				if c.matches(e.Channel) {
					select {
					case c.send <- e.Data:
					default:
					}
				}
			}
		}
	}

	h.register(c)
	go c.writePump()
	go c.readPump()
}

// MissedHandler serves GET ?from=N&to=M with the buffered envelopes in
// that seq range as a JSON array, for clients backfilling a gap.
func (h *Hub) MissedHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		from, err1 := strconv.ParseInt(q.Get("from"), 10, 64)
		to, err2 := strconv.ParseInt(q.Get("to"), 10, 64)
		if err1 != nil || err2 != nil || from > to {
			http.Error(w, "from and to must be integers with from <= to", http.StatusBadRequest)
			return
		}
		msgs := h.Replay(from, to)
		out := make([]json.RawMessage, len(msgs))
		for i, m := range msgs {
			out[i] = m
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	})
}

package sse

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/autoinvite/cache"
	"github.com/kasuganosora/autoinvite/game/chat"
	"go.uber.org/zap"
)

const defaultKeepalive = 30 * time.Second

// HistoryReader returns recent chat lines, oldest first.
type HistoryReader interface {
	History(ctx context.Context, n int) ([]string, error)
}

// Handler streams the plugin chat to browsers.
type Handler struct {
	pubsub    cache.PubSub
	history   HistoryReader
	keepalive time.Duration
	logger    *zap.Logger
}

// NewHandler creates a new SSE Handler. A non-positive keepalive uses 30s.
func NewHandler(pubsub cache.PubSub, history HistoryReader, keepalive time.Duration, logger *zap.Logger) *Handler {
	if keepalive <= 0 {
		keepalive = defaultKeepalive
	}
	return &Handler{pubsub: pubsub, history: history, keepalive: keepalive, logger: logger}
}

// ServeSSE handles GET /sse?token=<jwt>[&replay=n].
// Authentication is done by the Auth middleware. Each chat line becomes a
// "chat" event; replay=n first sends the last n lines from history.
func (h *Handler) ServeSSE(c *gin.Context) {
	replay := 0
	if raw := c.Query("replay"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid replay"})
			return
		}
		replay = n
	}

	subCtx, subCancel := context.WithCancel(c.Request.Context())
	defer subCancel()

	msgCh, unsub, err := h.pubsub.Subscribe(subCtx, chat.Channel)
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	defer unsub()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	fmt.Fprintf(c.Writer, "event: connected\ndata: {}\n\n")
	if replay > 0 && h.history != nil {
		lines, err := h.history.History(subCtx, replay)
		if err != nil {
			h.logger.Warn("sse replay failed", zap.Error(err))
		}
		for _, l := range lines {
			writeEvent(c.Writer, "chat", l)
		}
	}
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			writeEvent(c.Writer, "chat", msg.Payload)
			c.Writer.Flush()

		case <-ticker.C:
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-c.Request.Context().Done():
			return
		}
	}
}

// writeEvent writes one event, splitting multi-line payloads into
// several data fields.
func writeEvent(w io.Writer, event, payload string) {
	fmt.Fprintf(w, "event: %s\n", event)
	for _, line := range strings.Split(payload, "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprint(w, "\n")
}

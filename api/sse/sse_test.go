package sse

import (
	"bufio"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/autoinvite/game/chat"
	"github.com/kasuganosora/autoinvite/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// readEvent reads lines up to the next blank line.
func readEvent(t *testing.T, r *bufio.Reader) []string {
	t.Helper()
	var lines []string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		if line == "" {
			return lines
		}
		lines = append(lines, line)
	}
}

func TestServeSSE_ReplayAndLive(t *testing.T) {
	c, ps := testutil.SetupTestCache(t)
	printer := chat.NewChannelPrinter(c, ps, 10, zap.NewNop())
	printer.Print("before connect")

	h := NewHandler(ps, printer, time.Hour, zap.NewNop())
	r := gin.New()
	r.GET("/sse", h.ServeSSE)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sse?replay=5", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	br := bufio.NewReader(resp.Body)
	assert.Equal(t, []string{"event: connected", "data: {}"}, readEvent(t, br))
	assert.Equal(t, []string{"event: chat", "data: before connect"}, readEvent(t, br))

	printer.Print("Invite sent to Alice")
	assert.Equal(t, []string{"event: chat", "data: Invite sent to Alice"}, readEvent(t, br))
}

func TestServeSSE_BadReplay(t *testing.T) {
	_, ps := testutil.SetupTestCache(t)
	h := NewHandler(ps, nil, 0, zap.NewNop())
	r := gin.New()
	r.GET("/sse", h.ServeSSE)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sse?replay=-1", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWriteEvent_MultiLine(t *testing.T) {
	var buf bytes.Buffer
	writeEvent(&buf, "chat", "a\nb")
	assert.Equal(t, "event: chat\ndata: a\ndata: b\n\n", buf.String())
}

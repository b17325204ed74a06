package server

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/shelfwise/internal/config"
)

func TestServerServesUntilShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	srv := New(slog.New(slog.NewTextHandler(io.Discard, nil)), config.Defaults().HTTP, handler)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String())
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	require.NoError(t, <-done)
}

func TestNewJoinsHostAndPort(t *testing.T) {
	cfg := config.Defaults().HTTP
	cfg.Host = "::1"
	cfg.Port = 9090
	srv := New(nil, cfg, http.NotFoundHandler())
	assert.Equal(t, "[::1]:9090", srv.httpServer.Addr)
}

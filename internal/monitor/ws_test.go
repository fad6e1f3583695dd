package monitor_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaWS "github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/doismellburning/samoyed/internal/config"
	"github.com/doismellburning/samoyed/internal/fanout"
	"github.com/doismellburning/samoyed/internal/monitor"
)

func TestMonitorRelaysPublishedFrames(t *testing.T) {
	f, err := fanout.New(context.Background(), config.FanoutConfig{})
	require.NoError(t, err)
	defer f.Close()

	h := monitor.NewHandler(f, nil)
	srv := httptest.NewServer(h.ServeTopic("chan:0"))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := gorillaWS.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return f.Publish("chan:0", []byte("hello")) == nil
	}, time.Second, 10*time.Millisecond)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, "hello", string(msg))
}

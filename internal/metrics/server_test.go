package metrics_test

import (
	"net"
	"strconv"
	"strings"
	"testing"

	"github.com/doismellburning/samoyed/internal/config"
	"github.com/doismellburning/samoyed/internal/metrics"
	"github.com/stretchr/testify/require"
)

func TestCreateMetricsServerDisabledReturnsNil(t *testing.T) {
	err := metrics.CreateMetricsServer(config.MetricsConfig{Enabled: false})
	require.NoError(t, err)
}

func TestCreateMetricsServerPortInUseReturnsError(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	port := listener.Addr().(*net.TCPAddr).Port

	err = metrics.CreateMetricsServer(config.MetricsConfig{
		Enabled: true,
		Bind:    "127.0.0.1",
		Port:    port,
	})
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "127.0.0.1:"+strconv.Itoa(port)))
}

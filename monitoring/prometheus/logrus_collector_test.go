package prometheus

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestLogrusCollector(t *testing.T) {
	hook := NewLogrusCollector()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.AddHook(hook)

	srv := httptest.NewServer(promhttp.Handler())
	defer srv.Close()

	tests := []struct {
		name   string
		want   int
		prefix string
		level  logrus.Level
	}{
		{"info messages with prefix", 3, "ingress", logrus.InfoLevel},
		{"warn messages with prefix", 2, "ingress", logrus.WarnLevel},
		{"error messages with prefix", 1, "ingress", logrus.ErrorLevel},
		{"info messages without prefix", 2, "global", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < tt.want; i++ {
				entry := logger.WithFields(logrus.Fields{})
				if tt.prefix != "global" {
					entry = logger.WithField("prefix", tt.prefix)
				}
				switch tt.level {
				case logrus.InfoLevel:
					entry.Info("Info message")
				case logrus.WarnLevel:
					entry.Warn("Warning message")
				case logrus.ErrorLevel:
					entry.Error("Error message")
				}
			}
			count := scrapeCounter(t, srv.URL, tt.prefix, tt.level)
			require.Equal(t, tt.want, count)
		})
	}
}

func scrapeCounter(t *testing.T, url, prefix string, level logrus.Level) int {
	resp, err := http.Get(url + "/metrics")
	require.NoError(t, err)
	defer func() {
		require.NoError(t, resp.Body.Close())
	}()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	// Expect a line shaped like:
	//   log_entries_total{level="error",prefix="ingress"} 1
	pattern := fmt.Sprintf("log_entries_total{level=%q,prefix=%q}", level.String(), prefix)
	for _, line := range strings.Split(string(body), "\n") {
		if strings.HasPrefix(line, pattern) {
			parts := strings.Split(line, " ")
			count, err := strconv.ParseFloat(parts[1], 64)
			require.NoError(t, err)
			return int(count)
		}
	}
	t.Fatalf("pattern %q not found in metrics output", pattern)
	return 0
}

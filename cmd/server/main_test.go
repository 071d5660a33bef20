package main

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tankyou/internal/shared/testutil"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestRunServesUntilCancelled(t *testing.T) {
	base := t.TempDir()
	cfgPath := filepath.Join(base, "tankyou.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("server:\n  host: 127.0.0.1\n"), 0644))

	port := freePort(t)
	logger, _ := testutil.NewTestLogger(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	var stderr bytes.Buffer
	go func() {
		done <- run(ctx, []string{"-config", cfgPath, "-dir", base, "-port", strconv.Itoa(port)}, &stderr, logger)
	}()

	url := "http://127.0.0.1:" + strconv.Itoa(port) + "/api/health/live"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case code := <-done:
		assert.Equal(t, 0, code, stderr.String())
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
	}{
		{name: "unknown flag", args: []string{"-bogus"}, wantCode: 2},
		{name: "missing config file", args: []string{"-config", filepath.Join(t.TempDir(), "absent.yaml")}, wantCode: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			assert.Equal(t, tt.wantCode, run(context.Background(), tt.args, &stderr, nil))
		})
	}
}

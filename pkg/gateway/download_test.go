package gateway_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jlrickert/textpix/pkg/gateway"
	"github.com/jlrickert/textpix/pkg/record"
	"github.com/stretchr/testify/require"
)

var fastPolicy = gateway.RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond, Timeout: 5 * time.Second}

func TestDownloader_SucceedsAfterFailures(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch hits.Add(1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.WriteHeader(http.StatusOK) // empty body counts as failure
		default:
			_, _ = w.Write([]byte("PNGDATA"))
		}
	}))
	defer srv.Close()

	d := gateway.NewDownloader(fastPolicy)
	data, err := d.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, []byte("PNGDATA"), data)
	require.Equal(t, int32(3), hits.Load())
}

func TestDownloader_GivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d := gateway.NewDownloader(fastPolicy)
	_, err := d.Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, record.ErrTransport)

	var terr *gateway.TransportError
	require.ErrorAs(t, err, &terr)
	require.Equal(t, 3, terr.Attempts)
	require.Equal(t, int32(3), hits.Load())
	require.Contains(t, err.Error(), "after 3 attempts")
}

func TestDownloader_SingleAttemptPolicy(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := gateway.NewDownloader(gateway.RetryPolicy{MaxAttempts: 1, Delay: time.Millisecond})
	_, err := d.Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, record.ErrTransport)
	require.Equal(t, int32(1), hits.Load())
}

func TestDownloader_CanceledContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := gateway.NewDownloader(fastPolicy)
	_, err := d.Fetch(ctx, srv.URL)
	require.ErrorIs(t, err, record.ErrTransport)
}

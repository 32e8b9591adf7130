package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReportErrorPostsFencedMessage(t *testing.T) {
	t.Parallel()

	var body string
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		mu.Lock()
		body = string(buf)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	admin := NewAdmin(srv.URL, time.Second, zap.NewNop())
	admin.ReportError(context.Background(), "fetch bachelor board: connection refused")

	require.Contains(t, body, "🚨 **Crawler error**")
	require.Contains(t, body, "```\\nfetch bachelor board: connection refused\\n```")
}

func TestReportErrorWithoutURLIsDropped(t *testing.T) {
	t.Parallel()

	admin := NewAdmin("", time.Second, zap.NewNop())
	// Must not panic or attempt any network call.
	admin.ReportError(context.Background(), "boom")
}

func TestReportErrorSwallowsDeliveryFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	admin := NewAdmin(srv.URL, time.Second, zap.NewNop())
	admin.ReportError(context.Background(), "boom")
}

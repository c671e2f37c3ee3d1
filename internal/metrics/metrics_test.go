package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	apperrors "prompthub.io/prompthub/internal/pkg/errors"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{fmt.Errorf("read: %w", apperrors.ErrNotFound), "not_found"},
		{fmt.Errorf("read: %w", apperrors.ErrUnauthorized), "unauthorized"},
		{fmt.Errorf("commit: %w", apperrors.ErrConflict), "conflict"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			require.Equal(t, tt.want, Outcome(tt.err))
		})
	}
}

func TestRecordStoreCall(t *testing.T) {
	before := testutil.ToFloat64(StoreCallsTotal.WithLabelValues("memory", "read_file", "not_found"))
	RecordStoreCall("memory", "read_file", time.Now(), apperrors.ErrNotFound)
	after := testutil.ToFloat64(StoreCallsTotal.WithLabelValues("memory", "read_file", "not_found"))
	require.Equal(t, before+1, after)
}

func TestRecordWebhook_EmptyKey(t *testing.T) {
	before := testutil.ToFloat64(WebhookEventsTotal.WithLabelValues("unknown"))
	RecordWebhook("")
	require.Equal(t, before+1, testutil.ToFloat64(WebhookEventsTotal.WithLabelValues("unknown")))
}

func TestPrometheusMiddleware_UsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(PrometheusMiddleware())
	r.GET("/api/templates/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	counter := APIRequestsTotal.WithLabelValues(http.MethodGet, "/api/templates/:id", "204")
	before := testutil.ToFloat64(counter)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/templates/HR-ABC-Policy", nil))

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, before+1, testutil.ToFloat64(counter))
}

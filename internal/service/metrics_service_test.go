package service

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-od-api/internal/models"
)

func TestMetricsServiceExposesODCounters(t *testing.T) {
	m := NewMetricsService()
	m.ODCreated()
	m.ODReviewed(models.ODStatusApproved)
	m.NotificationResult("sent")
	m.ObserveHTTPRequest(http.MethodGet, "/od/all", http.StatusOK, 5*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "od_requests_created_total 1")
	assert.Contains(t, string(body), `od_requests_reviewed_total{status="approved"} 1`)
	assert.Contains(t, string(body), `od_notifications_total{result="sent"} 1`)
	assert.InDelta(t, 0.5, m.CacheHitRatio(), 0.0001)
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.ODCreated()
	m.ODReviewed(models.ODStatusRejected)
	m.RecordCacheOperation(true, time.Millisecond)
	assert.Zero(t, m.CacheHitRatio())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

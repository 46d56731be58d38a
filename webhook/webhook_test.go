package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/omniscrape/models"
)

func TestNewEventType(t *testing.T) {
	ok := &models.RunReport{ID: "a", Result: models.NewTextResult(&models.ArticleText{})}
	assert.Equal(t, EventRunCompleted, NewEvent(ok).Type)

	failed := &models.RunReport{ID: "b", Result: models.NewErrorResult(models.NewScrapeError(models.ErrCodeNavigation, "x", nil))}
	assert.Equal(t, EventRunFailed, NewEvent(failed).Type)
	assert.Equal(t, "b", NewEvent(failed).RunID)
}

func TestDeliverSigned(t *testing.T) {
	var gotSig string
	var got Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotSig = r.Header.Get(SignatureHeader)
		assert.Equal(t, "sha256="+Sign("s3cret", body), gotSig)
		_ = json.Unmarshal(body, &got)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, "s3cret")
	event := NewEvent(&models.RunReport{ID: "r1", Result: models.NewTextResult(&models.ArticleText{})})
	require.NoError(t, n.Deliver(context.Background(), event))
	assert.NotEmpty(t, gotSig)
	assert.Equal(t, "r1", got.RunID)
}

func TestDeliverRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, "")
	n.delays = []time.Duration{0, time.Millisecond, time.Millisecond}
	event := NewEvent(&models.RunReport{ID: "r1", Result: models.NewTextResult(&models.ArticleText{})})

	require.NoError(t, n.deliverWithRetry(context.Background(), event))
	assert.Equal(t, int32(3), calls.Load())

	calls.Store(-10)
	assert.Error(t, n.deliverWithRetry(context.Background(), event))
}

func TestFlushWaitsForDelivery(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, "")
	n.delays = []time.Duration{0, 20 * time.Millisecond}
	n.Notify(&models.RunReport{ID: "r1", Result: models.NewTextResult(&models.ArticleText{})})

	assert.True(t, n.Flush(5*time.Second))
	assert.Equal(t, int32(2), calls.Load())
}

func TestFlushTimeoutAbandonsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, "")
	n.delays = []time.Duration{0, time.Hour}
	n.Notify(&models.RunReport{ID: "r1", Result: models.NewTextResult(&models.ArticleText{})})

	start := time.Now()
	assert.False(t, n.Flush(50*time.Millisecond))
	assert.Less(t, time.Since(start), 10*time.Second)
}

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeoutMiddlewarePassesThroughFastHandlers(t *testing.T) {
	handler := TimeoutMiddleware(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ok": true}`))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, `{"ok": true}`, rec.Body.String())
}

func TestTimeoutMiddlewareRespondsWithRequestTimeout(t *testing.T) {
	done := make(chan struct{})
	handler := TimeoutMiddleware(20*time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(done)
		time.Sleep(200 * time.Millisecond)
		// this write arrives after the deadline and must be dropped
		_, err := w.Write([]byte("too late"))
		assert.ErrorIs(t, err, http.ErrHandlerTimeout)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))
	<-done

	assert.Equal(t, http.StatusRequestTimeout, rec.Code)
	assert.JSONEq(t, `{"error": "request timeout"}`, rec.Body.String())
}

func TestTimeoutMiddlewareKeepsHandlerResponseWhenAlreadyWritten(t *testing.T) {
	done := make(chan struct{})
	handler := TimeoutMiddleware(20*time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(done)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok": true}`))
		<-r.Context().Done()
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))
	<-done

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"ok": true}`, rec.Body.String())
}

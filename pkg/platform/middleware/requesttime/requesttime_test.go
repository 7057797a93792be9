package requesttime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMiddleware_SetsTimeInContext(t *testing.T) {
	var capturedTime time.Time
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedTime = Now(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	before := time.Now()
	handler.ServeHTTP(w, req)
	after := time.Now()

	assert.False(t, capturedTime.IsZero())
	assert.True(t, !capturedTime.Before(before), "captured time should be >= before")
	assert.True(t, !capturedTime.After(after), "captured time should be <= after")
}

func TestMiddleware_TimeIsConsistentWithinRequest(t *testing.T) {
	var firstRead, secondRead time.Time
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		firstRead = Now(r.Context())
		time.Sleep(10 * time.Millisecond)
		secondRead = Now(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, firstRead, secondRead, "time should be consistent within request")
}

func TestNow_FallbackToRealTime(t *testing.T) {
	ctx := context.Background() // No middleware

	before := time.Now()
	result := Now(ctx)
	after := time.Now()

	assert.True(t, !result.Before(before), "result should be >= before")
	assert.True(t, !result.After(after), "result should be <= after")
}

func TestWithTime_OverridesNow(t *testing.T) {
	frozen := time.Date(2026, time.March, 14, 15, 9, 26, 0, time.UTC)
	ctx := WithTime(context.Background(), frozen)

	assert.Equal(t, frozen, Now(ctx))

	later := frozen.Add(11 * time.Minute)
	assert.Equal(t, later, Now(WithTime(ctx, later)), "nested WithTime wins")
}

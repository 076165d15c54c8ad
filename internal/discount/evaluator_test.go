package discount

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront-cart/internal/domain"
	"github.com/utafrali/storefront-cart/pkg/httpclient"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEvaluator(t *testing.T, handler http.Handler) *Evaluator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewEvaluator(httpclient.New(httpclient.DefaultConfig()), srv.URL, testLogger())
}

func checkHandler(resp checkResponse) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(resp)
	})
}

func TestEvaluate_PercentageCappedByMaximum(t *testing.T) {
	e := newTestEvaluator(t, checkHandler(checkResponse{
		Valid:                 true,
		DiscountType:          domain.DiscountTypePercentage,
		Value:                 10,
		MaximumDiscountAmount: 40000,
	}))

	app, err := e.Evaluate(context.Background(), "SUMMER10", "u1", 500000)
	require.NoError(t, err)
	assert.Equal(t, int64(40000), app.ComputedAmount)
	assert.Equal(t, "SUMMER10", app.Code)
}

func TestEvaluate_PercentageNoCap(t *testing.T) {
	e := newTestEvaluator(t, checkHandler(checkResponse{
		Valid:        true,
		DiscountType: domain.DiscountTypePercentage,
		Value:        25,
	}))

	app, err := e.Evaluate(context.Background(), "quarter", "u1", 20000)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), app.ComputedAmount)
	// Codes are normalized to uppercase before the network call.
	assert.Equal(t, "QUARTER", app.Code)
}

func TestEvaluate_PercentageOverHundredClampedToSubtotal(t *testing.T) {
	e := newTestEvaluator(t, checkHandler(checkResponse{
		Valid:        true,
		DiscountType: domain.DiscountTypePercentage,
		Value:        150,
	}))

	app, err := e.Evaluate(context.Background(), "EVERYTHING", "u1", 20000)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), app.ComputedAmount)
}

func TestEvaluate_FixedAmountClampedToSubtotal(t *testing.T) {
	e := newTestEvaluator(t, checkHandler(checkResponse{
		Valid:        true,
		DiscountType: domain.DiscountTypeFixedAmount,
		Value:        100000,
	}))

	app, err := e.Evaluate(context.Background(), "BIGSAVE", "u1", 80000)
	require.NoError(t, err)
	assert.Equal(t, int64(80000), app.ComputedAmount)
}

func TestEvaluate_OrderTooSmallIsLocal(t *testing.T) {
	var validateCalls int32
	e := newTestEvaluator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/discount-codes/validate" {
			atomic.AddInt32(&validateCalls, 1)
		}
		_ = json.NewEncoder(w).Encode(checkResponse{
			Valid:                 true,
			DiscountType:          domain.DiscountTypePercentage,
			Value:                 10,
			MinimumPurchaseAmount: 50000,
		})
	}))

	_, err := e.Evaluate(context.Background(), "MIN50", "u1", 49999)
	var rej *RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, ReasonOrderTooSmall, rej.Reason)
	assert.Zero(t, atomic.LoadInt32(&validateCalls))
}

func TestEvaluate_MalformedCodeSkipsNetwork(t *testing.T) {
	var calls int32
	e := newTestEvaluator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))

	for _, code := range []string{"", "   ", "has spaces", "bad!chars"} {
		_, err := e.Evaluate(context.Background(), code, "u1", 10000)
		var rej *RejectionError
		require.ErrorAs(t, err, &rej, "code %q", code)
		assert.Equal(t, ReasonInvalidFormat, rej.Reason)
	}
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestEvaluate_NormalizesServerReasons(t *testing.T) {
	cases := []struct {
		raw     string
		message string
		want    Reason
	}{
		{"NOT_FOUND", "", ReasonCodeNotFound},
		{"EXPIRED", "", ReasonCodeExpired},
		{"NOT_STARTED", "", ReasonCodeNotStarted},
		{"INACTIVE", "", ReasonCodeInactive},
		{"USAGE_LIMIT", "", ReasonUsageLimitReached},
		{"", "discount code has expired", ReasonCodeExpired},
		{"", "code is not active", ReasonCodeInactive},
		{"", "usage limit reached for this code", ReasonUsageLimitReached},
		{"SOMETHING_NEW", "unexplained", ReasonServerError},
	}

	for _, tc := range cases {
		t.Run(tc.raw+"/"+tc.message, func(t *testing.T) {
			e := newTestEvaluator(t, checkHandler(checkResponse{
				Valid:   false,
				Reason:  tc.raw,
				Message: tc.message,
			}))

			_, err := e.Evaluate(context.Background(), "SOMECODE", "u1", 10000)
			var rej *RejectionError
			require.ErrorAs(t, err, &rej)
			assert.Equal(t, tc.want, rej.Reason)
		})
	}
}

func TestEvaluate_NotFoundStatus(t *testing.T) {
	e := newTestEvaluator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"code":"NOT_FOUND","message":"no such code"}}`)
	}))

	_, err := e.Evaluate(context.Background(), "GHOST", "u1", 10000)
	var rej *RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, ReasonCodeNotFound, rej.Reason)
}

func TestEvaluate_ServerFault(t *testing.T) {
	e := newTestEvaluator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := e.Evaluate(context.Background(), "ANYCODE", "u1", 10000)
	var rej *RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, ReasonServerError, rej.Reason)
}

func TestEvaluate_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	e := NewEvaluator(httpclient.New(httpclient.DefaultConfig()), srv.URL, testLogger())

	_, err := e.Evaluate(context.Background(), "ANYCODE", "u1", 10000)
	var rej *RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, ReasonNetworkError, rej.Reason)
}

func TestConfirm(t *testing.T) {
	e := newTestEvaluator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/discount-codes/validate", r.URL.Path)
		assert.Equal(t, "SUMMER10", r.URL.Query().Get("code"))
		assert.Equal(t, "530000", r.URL.Query().Get("orderTotal"))
		fmt.Fprint(w, "40000")
	}))

	amount, err := e.Confirm(context.Background(), "SUMMER10", "u1", 530000)
	require.NoError(t, err)
	assert.Equal(t, int64(40000), amount)
}

func TestConfirm_RejectsNegativeAmount(t *testing.T) {
	e := newTestEvaluator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "-1")
	}))

	_, err := e.Confirm(context.Background(), "SUMMER10", "u1", 530000)
	require.Error(t, err)
	var rej *RejectionError
	assert.False(t, errors.As(err, &rej))
}

func TestComputeAmount_UnknownTypeIsZero(t *testing.T) {
	assert.Zero(t, computeAmount("BOGO", 10, 0, 100000))
}

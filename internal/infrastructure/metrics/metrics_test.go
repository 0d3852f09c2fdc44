package metrics

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"loanledger/internal/domain/fault"
)

func TestObserveOperation(t *testing.T) {
	m := newLedgerMetrics()

	m.ObserveOperation("loan", "start", nil, time.Millisecond)
	m.ObserveOperation("loan", "start", nil, time.Millisecond)
	m.ObserveOperation("loan", "start", fmt.Errorf("%w: nope", fault.ErrUnauthorized), time.Millisecond)
	m.ObserveOperation("loan", "start", errors.New("boom"), time.Millisecond)

	if got := testutil.ToFloat64(m.operations.WithLabelValues("loan", "start", "ok")); got != 2 {
		t.Fatalf("ok=%v", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("loan", "start", "unauthorized")); got != 1 {
		t.Fatalf("unauthorized=%v", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("loan", "start", "internal")); got != 1 {
		t.Fatalf("internal=%v", got)
	}
}

func TestObservePublish(t *testing.T) {
	m := newLedgerMetrics()
	m.ObservePublish(3, nil)
	m.ObservePublish(0, errors.New("ignored"))
	m.ObservePublish(2, errors.New("down"))

	if got := testutil.ToFloat64(m.published.WithLabelValues("ok")); got != 3 {
		t.Fatalf("ok=%v", got)
	}
	if got := testutil.ToFloat64(m.published.WithLabelValues("error")); got != 2 {
		t.Fatalf("error=%v", got)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *LedgerMetrics
	m.ObserveOperation("factory", "createLoan", nil, 0)
	m.ObservePublish(1, nil)
}

func TestHandler(t *testing.T) {
	m := newLedgerMetrics()
	m.ObserveOperation("factory", "createLoan", nil, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `loanledger_operations_total{entity="factory",operation="createLoan",outcome="ok"} 1`) {
		t.Fatalf("metrics body missing counter:\n%s", body)
	}
}

func TestLedgerIsSingleton(t *testing.T) {
	if Ledger() != Ledger() {
		t.Fatal("Ledger should return the same collectors")
	}
}

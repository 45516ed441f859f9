package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCounterRenders(t *testing.T) {
	r := NewRegistry()
	c := r.Counter("test_total", "A test counter")
	c.Inc()
	c.Add(2)

	out := r.render()
	if !strings.Contains(out, "test_total 3") {
		t.Fatalf("expected counter line in output, got:\n%s", out)
	}
	if !strings.Contains(out, "# TYPE test_total counter") {
		t.Fatalf("expected TYPE line, got:\n%s", out)
	}
}

func TestCounterRegistrationIsIdempotent(t *testing.T) {
	r := NewRegistry()
	a := r.Counter("dup_total", "first")
	b := r.Counter("dup_total", "second")
	if a != b {
		t.Fatal("registering the same name twice should return the same counter")
	}
}

func TestGaugeUpDown(t *testing.T) {
	r := NewRegistry()
	g := r.Gauge("test_gauge", "A test gauge")
	g.Set(5)
	g.Dec()
	if g.Value() != 4 {
		t.Fatalf("expected 4, got %d", g.Value())
	}
}

func TestHistogramBuckets(t *testing.T) {
	r := NewRegistry()
	h := r.Histogram("test_seconds", "A test histogram", []float64{1, 5})
	h.Observe(0.5)
	h.Observe(3)
	h.Observe(100)

	out := r.render()
	if !strings.Contains(out, `test_seconds_bucket{le="1"} 1`) {
		t.Fatalf("expected le=1 bucket count 1, got:\n%s", out)
	}
	if !strings.Contains(out, `test_seconds_bucket{le="5"} 2`) {
		t.Fatalf("expected le=5 bucket count 2, got:\n%s", out)
	}
	if !strings.Contains(out, `test_seconds_bucket{le="+Inf"} 3`) {
		t.Fatalf("expected +Inf bucket count 3, got:\n%s", out)
	}
	if !strings.Contains(out, "test_seconds_count 3") {
		t.Fatalf("expected count 3, got:\n%s", out)
	}
}

func TestHandlerServesText(t *testing.T) {
	r := NewRegistry()
	r.Counter("served_total", "served").Inc()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	r.Handler()(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("expected text/plain content type, got %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "served_total 1") {
		t.Fatalf("expected metric in body, got:\n%s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "memebot_uptime_seconds") {
		t.Fatalf("expected uptime gauge, got:\n%s", rec.Body.String())
	}
}

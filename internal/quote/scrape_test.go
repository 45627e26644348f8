package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const quotePage = `<html><body>
<div class="quote-summary">
  <span id="content_LastSale">187.45</span>
  <span id="content_NetChange">1.20</span>
  <span id="content_PctChange">0.64%</span>
  <span id="content_Volume">52,112,300</span>
  <span id="content_PreviousClose">186.25</span>
  <span id="content_TodaysHigh">189.10</span>
  <span id="content_TodaysLow">185.02</span>
  <span id="content_52WeekHigh">199.62</span>
  <span id="content_52WeekLow">124.17</span>
  <span id="content_updownImage" class="arrow-up"></span>
</div>
</body></html>`

func TestScrapeFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, quotePage)
	}))
	defer srv.Close()

	src := NewScrapeSource(srv.URL, 2*time.Second)
	q, err := src.Fetch(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if q.Last != 187.45 {
		t.Errorf("Expected last 187.45, got %v", q.Last)
	}
	if q.PrevClose != 186.25 {
		t.Errorf("Expected prev close 186.25, got %v", q.PrevClose)
	}
	if q.DayLow != 185.02 || q.DayHigh != 189.10 {
		t.Errorf("Expected day range [185.02, 189.10], got [%v, %v]", q.DayLow, q.DayHigh)
	}
	if q.YearLow != 124.17 || q.YearHigh != 199.62 {
		t.Errorf("Expected year range [124.17, 199.62], got [%v, %v]", q.YearLow, q.YearHigh)
	}
	if q.Volume != 52112300 {
		t.Errorf("Expected volume 52112300, got %v", q.Volume)
	}
	if q.Direction != "up" {
		t.Errorf("Expected direction up, got %v", q.Direction)
	}
}

func TestScrapeFetchNonNumericPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="quote-summary">
			<span id="content_LastSale">N/A</span>
		</div></body></html>`)
	}))
	defer srv.Close()

	src := NewScrapeSource(srv.URL, 2*time.Second)
	_, err := src.Fetch(context.Background(), "AAPL")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable for non-numeric price, got %v", err)
	}
}

func TestScrapeFetchServerDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // immediately unreachable

	src := NewScrapeSource(srv.URL, 500*time.Millisecond)
	_, err := src.Fetch(context.Background(), "AAPL")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable when server is down, got %v", err)
	}
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"52,112,300", 52112300},
		{"$187.45", 187.45},
		{"0.64%", 0.64},
		{"-1.20", -1.20},
		{"N/A", 0},
		{"", 0},
	}
	for _, tc := range cases {
		if got := parseNumber(tc.in); got != tc.want {
			t.Errorf("parseNumber(%q): expected %v, got %v", tc.in, tc.want, got)
		}
	}
}

func TestStaticSourceWalk(t *testing.T) {
	src := NewStaticSource(42)
	ctx := context.Background()

	q1, err := src.Fetch(ctx, "NVDA")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if q1.Last <= 0 {
		t.Fatalf("Expected positive simulated price, got %v", q1.Last)
	}

	q2, _ := src.Fetch(ctx, "NVDA")
	if q2.DayHigh < q2.Last || q2.DayLow > q2.Last {
		t.Errorf("Day range [%v, %v] does not contain last %v", q2.DayLow, q2.DayHigh, q2.Last)
	}
	if q2.PrevClose != q1.PrevClose {
		t.Errorf("Prev close should be stable within a session, got %v then %v", q1.PrevClose, q2.PrevClose)
	}
}

package quote

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"daytrader/internal/interfaces"
	"daytrader/internal/types"
)

const defaultBaseURL = "https://www.nasdaq.com"

// ScrapeSource fetches live quotes by scraping the exchange's real-time
// quote page. Requests run with a short timeout so a slow page degrades to
// ErrUnavailable instead of stalling the polling cycle.
type ScrapeSource struct {
	baseURL string
	timeout time.Duration
}

var _ interfaces.QuoteSource = (*ScrapeSource)(nil)

func NewScrapeSource(baseURL string, timeout time.Duration) *ScrapeSource {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &ScrapeSource{baseURL: baseURL, timeout: timeout}
}

func (s *ScrapeSource) Fetch(ctx context.Context, symbol string) (types.Quote, error) {
	q := types.Quote{Symbol: symbol, Direction: types.DirFlat}

	c := colly.NewCollector(colly.MaxDepth(1))
	c.SetRequestTimeout(s.timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	})

	c.OnHTML("div.quote-summary", func(e *colly.HTMLElement) {
		parseSummary(e.DOM, &q)
	})

	url := fmt.Sprintf("%s/symbol/%s/real-time", s.baseURL, strings.ToLower(symbol))
	if err := c.Visit(url); err != nil {
		return types.Quote{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	c.Wait()

	// A page without a positive numeric last price is no quote at all.
	if q.Last <= 0 {
		return types.Quote{}, fmt.Errorf("%w: no numeric price for %s", ErrUnavailable, symbol)
	}
	return q, nil
}

// parseSummary walks the id-tagged spans of the quote summary table and fills
// in the snapshot fields it recognizes.
func parseSummary(sel *goquery.Selection, q *types.Quote) {
	sel.Find("span[id]").Each(func(_ int, el *goquery.Selection) {
		id, _ := el.Attr("id")
		switch {
		case strings.HasSuffix(id, "LastSale"):
			q.Last = parseNumber(el.Text())
		case strings.HasSuffix(id, "NetChange"):
			q.Change = parseNumber(el.Text())
		case strings.HasSuffix(id, "PctChange"):
			q.ChangePct = parseNumber(el.Text())
		case strings.HasSuffix(id, "Volume"):
			q.Volume = parseNumber(el.Text())
		case strings.HasSuffix(id, "PreviousClose"):
			q.PrevClose = parseNumber(el.Text())
		case strings.HasSuffix(id, "TodaysHigh"):
			q.DayHigh = parseNumber(el.Text())
		case strings.HasSuffix(id, "TodaysLow"):
			q.DayLow = parseNumber(el.Text())
		case strings.HasSuffix(id, "52WeekHigh"):
			q.YearHigh = parseNumber(el.Text())
		case strings.HasSuffix(id, "52WeekLow"):
			q.YearLow = parseNumber(el.Text())
		case strings.HasSuffix(id, "updownImage"):
			q.Direction = parseDirection(el)
		}
	})
}

func parseDirection(el *goquery.Selection) types.Direction {
	class, _ := el.Attr("class")
	switch {
	case strings.Contains(class, "up"):
		return types.DirUp
	case strings.Contains(class, "down"):
		return types.DirDown
	}
	return types.DirFlat
}

// parseNumber strips display noise (commas, currency signs, percent marks)
// and parses the remainder. Returns 0 for anything non-numeric.
func parseNumber(s string) float64 {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return v
}

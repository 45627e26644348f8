package strategy

import "time"

// Strategy identifies which buy-evaluation rule an instrument applies.
type Strategy string

const (
	// ShortTerm waits for a price reversal off a rolling low.
	ShortTerm Strategy = "ST"
	// PriceSwing trades the volatile window right after the open.
	PriceSwing Strategy = "PS"
)

const (
	openHour, openMinute   = 9, 30
	closeHour, closeMinute = 16, 0

	// swingWindow is how long after the open PriceSwing stays selected.
	swingWindow = 45 * time.Minute
)

var marketLocation = loadMarketLocation()

func loadMarketLocation() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		// tzdata missing; fall back to fixed EST
		return time.FixedZone("EST", -5*3600)
	}
	return loc
}

// Location returns the trading venue's timezone.
func Location() *time.Location {
	return marketLocation
}

// ForTime selects the strategy for a wall-clock instant: PriceSwing during
// [open, open+45m), ShortTerm otherwise. Callers gate actual trading on
// market-open checks separately.
func ForTime(t time.Time) Strategy {
	et := t.In(marketLocation)
	open := time.Date(et.Year(), et.Month(), et.Day(), openHour, openMinute, 0, 0, marketLocation)
	if !et.Before(open) && et.Before(open.Add(swingWindow)) {
		return PriceSwing
	}
	return ShortTerm
}

// AfterHours reports whether the market is closed at t: weekends, market
// holidays, or outside the 09:30-16:00 session.
func AfterHours(t time.Time) bool {
	et := t.In(marketLocation)
	if et.Weekday() == time.Saturday || et.Weekday() == time.Sunday {
		return true
	}
	if IsMarketHoliday(et) {
		return true
	}
	open := time.Date(et.Year(), et.Month(), et.Day(), openHour, openMinute, 0, 0, marketLocation)
	close := time.Date(et.Year(), et.Month(), et.Day(), closeHour, closeMinute, 0, 0, marketLocation)
	return et.Before(open) || et.After(close)
}

// PastCutoff reports whether t is past the given exchange-local HH:MM.
func PastCutoff(t time.Time, hour, minute int) bool {
	et := t.In(marketLocation)
	cutoff := time.Date(et.Year(), et.Month(), et.Day(), hour, minute, 0, 0, marketLocation)
	return et.After(cutoff)
}

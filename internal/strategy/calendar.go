package strategy

import "time"

// IsMarketHoliday reports whether t falls on a NYSE full-day holiday.
// Fixed-date holidays observe the nearest weekday (Saturday moves to Friday,
// Sunday to Monday).
func IsMarketHoliday(t time.Time) bool {
	et := t.In(marketLocation)
	y := et.Year()
	day := time.Date(y, et.Month(), et.Day(), 0, 0, 0, 0, marketLocation)

	holidays := []time.Time{
		observed(time.Date(y, time.January, 1, 0, 0, 0, 0, marketLocation)),
		nthWeekday(y, time.January, time.Monday, 3),   // Martin Luther King Jr. Day
		nthWeekday(y, time.February, time.Monday, 3),  // Washington's Birthday
		goodFriday(y),
		lastWeekday(y, time.May, time.Monday),         // Memorial Day
		observed(time.Date(y, time.June, 19, 0, 0, 0, 0, marketLocation)),
		observed(time.Date(y, time.July, 4, 0, 0, 0, 0, marketLocation)),
		nthWeekday(y, time.September, time.Monday, 1), // Labor Day
		nthWeekday(y, time.November, time.Thursday, 4), // Thanksgiving
		observed(time.Date(y, time.December, 25, 0, 0, 0, 0, marketLocation)),
	}

	for _, h := range holidays {
		if day.Equal(h) {
			return true
		}
	}
	return false
}

func observed(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	}
	return d
}

func nthWeekday(year int, month time.Month, wd time.Weekday, n int) time.Time {
	d := time.Date(year, month, 1, 0, 0, 0, 0, marketLocation)
	for d.Weekday() != wd {
		d = d.AddDate(0, 0, 1)
	}
	return d.AddDate(0, 0, 7*(n-1))
}

func lastWeekday(year int, month time.Month, wd time.Weekday) time.Time {
	d := time.Date(year, month+1, 1, 0, 0, 0, 0, marketLocation).AddDate(0, 0, -1)
	for d.Weekday() != wd {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// goodFriday is two days before Easter Sunday (anonymous Gregorian computus).
func goodFriday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	dayOfMonth := (h+l-7*m+114)%31 + 1
	easter := time.Date(year, time.Month(month), dayOfMonth, 0, 0, 0, 0, marketLocation)
	return easter.AddDate(0, 0, -2)
}

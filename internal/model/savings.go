package model

import "time"

// DateOnly truncates t to midnight in its own location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// MonthsBetween returns whole calendar months from a to b using
// year*12+month arithmetic; the day of month is ignored.
func MonthsBetween(a, b time.Time) int {
	return (b.Year()*12 + int(b.Month())) - (a.Year()*12 + int(a.Month()))
}

// WindowStart returns the first day of the earliest month in a window of n
// calendar months that ends with the month containing now.
func WindowStart(now time.Time, n int) time.Time {
	y, m, _ := now.Date()
	return time.Date(y, m-time.Month(n-1), 1, 0, 0, 0, 0, now.Location())
}

// CompliantMonths counts distinct calendar months, from since onwards, that
// contain at least one deposit of at least minAmount.
func CompliantMonths(deposits []Deposit, since time.Time, minAmount float64) int {
	seen := make(map[int]struct{})
	for _, d := range deposits {
		if d.Date.Before(since) || d.Amount < minAmount {
			continue
		}
		seen[d.Date.Year()*12+int(d.Date.Month())] = struct{}{}
	}
	return len(seen)
}

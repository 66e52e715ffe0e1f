/*
Package invoice groups work-log rows into QuickBooks-compatible invoices.

PURPOSE:
  This package owns the billing business rules that must be reproduced
  bit-for-bit for the downstream accounting import: the Monday-Sunday
  billing week keyed by its Friday, invoice grouping and sequential
  numbering, Net-N due dates, and the item-name spacing/pluralization
  rules.

KEY CONCEPTS IN THIS FILE (period.go):
  - Billing week: Monday through Sunday
  - Billing Friday: the single Friday inside that week; all work in the
    week invoices under that date

ALGORITHM:
  With Go's weekday numbering (Sunday=0 .. Saturday=6):
    Sunday     -> Friday is 2 days earlier
    otherwise  -> Friday is (5 - weekday) days ahead
  Saturday lands one day back (5-6 = -1), still inside the same week.

SEE ALSO:
  - group.go: Uses the billing Friday as part of the grouping key
  - terms.go: Due date = billing Friday + Net days
*/
package invoice

import "time"

// BillingFriday returns the Friday of the Monday-Sunday billing week
// containing date. The result carries the date's location with the time
// portion truncated to midnight.
func BillingFriday(date time.Time) time.Time {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	wd := int(day.Weekday()) // Sunday=0 .. Saturday=6
	if wd == 0 {
		return day.AddDate(0, 0, -2)
	}
	return day.AddDate(0, 0, 5-wd)
}

// PeriodStart returns the Monday opening the billing week that ends on
// the Sunday after friday.
func PeriodStart(friday time.Time) time.Time {
	return friday.AddDate(0, 0, -4)
}

// PeriodEnd returns the Sunday closing the billing week of friday.
func PeriodEnd(friday time.Time) time.Time {
	return friday.AddDate(0, 0, 2)
}

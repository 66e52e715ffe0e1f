/*
terms.go - Payment terms parsing and due dates

PURPOSE:
  Parses "Net N" payment terms and computes invoice due dates. An
  unparseable terms string defaults to Net 30 rather than failing - a
  missing or mistyped terms field on a client must never block an export.

FORMAT:
  Due dates render MM/dd/yyyy, matching the legacy QuickBooks import.
*/
package invoice

import (
	"regexp"
	"strconv"
	"time"
)

const defaultNetDays = 30

var netTermsPattern = regexp.MustCompile(`(?i)net\s*(\d+)`)

// NetDays extracts the day count from a "Net N" terms string
// (case-insensitive, whitespace tolerant). No match defaults to 30.
func NetDays(terms string) int {
	m := netTermsPattern.FindStringSubmatch(terms)
	if m == nil {
		return defaultNetDays
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return defaultNetDays
	}
	return n
}

// DueDate returns invoiceDate plus the parsed Net days.
func DueDate(invoiceDate time.Time, terms string) time.Time {
	return invoiceDate.AddDate(0, 0, NetDays(terms))
}

// FormatDate renders a date the way the accounting import expects.
func FormatDate(t time.Time) string {
	return t.Format("01/02/2006")
}

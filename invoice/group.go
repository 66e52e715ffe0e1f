/*
group.go - Invoice grouping, numbering, and line rendering

PURPOSE:
  Restructures a flat work-log row set into per-invoice groups and
  renders them against a column mapping. One group per distinct
  (client, location, billing Friday) triple; one invoice number and one
  invoice date per group; one output line per underlying row.

NUMBERING:
  Groups are enumerated in the order they are first encountered while
  scanning the input rows, and numbered sequentially from the caller's
  start (default 1001), rendered as plain decimal with no padding. The
  executor's deterministic row order makes the numbering reproducible
  across runs on identical data.

RENDERING:
  Within a group, lines keep their original relative order. FirstRowOnly
  columns render on the group's first line only. The amount is
  quantity x rate rounded to 2 decimals; an unresolved rate renders rate
  and amount as empty strings, never zero.

SEE ALSO:
  - columns.go: The column mapping vocabulary
  - itemname.go: Item-name construction
  - export/csv.go: File serialization
*/
package invoice

import (
	"strconv"
	"strings"
	"time"

	"github.com/fleetwash/report-engine/engine"
)

// DefaultStartNumber seeds invoice numbering when the caller supplies
// nothing usable.
const DefaultStartNumber = 1001

// ParseStartNumber interprets a caller-supplied starting invoice number.
// Empty, non-numeric, or non-positive input falls back to the default.
func ParseStartNumber(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return DefaultStartNumber
	}
	return n
}

// =============================================================================
// GROUPING
// =============================================================================

// Group is one invoice: the rows sharing a (client, location, billing
// Friday) key. Derived, never persisted.
type Group struct {
	ClientID   string
	LocationID string
	Friday     time.Time
	Number     int
	Rows       []engine.WorkLogRow
}

type groupKey struct {
	clientID   string
	locationID string
	friday     string
}

// BuildGroups buckets rows into invoice groups in first-seen order and
// assigns sequential invoice numbers starting at startNumber.
func BuildGroups(rows []engine.WorkLogRow, startNumber int) []*Group {
	if startNumber <= 0 {
		startNumber = DefaultStartNumber
	}

	var order []*Group
	index := make(map[groupKey]*Group)
	for _, row := range rows {
		friday := BillingFriday(row.Date)
		key := groupKey{row.ClientID, row.LocationID, friday.Format("2006-01-02")}

		g, ok := index[key]
		if !ok {
			g = &Group{
				ClientID:   row.ClientID,
				LocationID: row.LocationID,
				Friday:     friday,
				Number:     startNumber + len(order),
			}
			index[key] = g
			order = append(order, g)
		}
		g.Rows = append(g.Rows, row)
	}
	return order
}

// LatestFriday returns the most recent billing Friday across groups,
// used for the export filename. Zero time when there are no groups.
func LatestFriday(groups []*Group) time.Time {
	var latest time.Time
	for _, g := range groups {
		if g.Friday.After(latest) {
			latest = g.Friday
		}
	}
	return latest
}

// =============================================================================
// RENDERING
// =============================================================================

// Render produces the output table: a header row followed by one line
// per work-log row, in group order then within-group order.
func Render(groups []*Group, cols []ColumnMapping) [][]string {
	table := make([][]string, 0, 1)
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Header
	}
	table = append(table, header)

	for _, g := range groups {
		for i, row := range g.Rows {
			line := make([]string, len(cols))
			for j, c := range cols {
				if c.FirstRowOnly && i > 0 {
					line[j] = ""
					continue
				}
				line[j] = fieldValue(g, row, c.Field)
			}
			table = append(table, line)
		}
	}
	return table
}

func fieldValue(g *Group, row engine.WorkLogRow, field FieldKey) string {
	switch field {
	case FieldInvoiceNumber:
		return strconv.Itoa(g.Number)
	case FieldCustomer:
		return row.ClientName
	case FieldInvoiceDate:
		return FormatDate(g.Friday)
	case FieldDueDate:
		return FormatDate(DueDate(g.Friday, row.Terms))
	case FieldTerms:
		if NetDays(row.Terms) == defaultNetDays && !netTermsPattern.MatchString(row.Terms) {
			return "Net 30"
		}
		return row.Terms
	case FieldLocation:
		return row.LocationName
	case FieldItem:
		return ItemName(Prefix(row), row.WorkTypeName, row.RateType, row.Frequency)
	case FieldDescription:
		return row.Identifier
	case FieldServiceDate:
		return FormatDate(row.Date)
	case FieldQuantity:
		return row.Quantity.String()
	case FieldRate:
		if row.Rate == nil {
			return ""
		}
		return row.Rate.String()
	case FieldAmount:
		total, ok := row.LineTotal()
		if !ok {
			return ""
		}
		return total.StringFixed(2)
	default:
		return ""
	}
}

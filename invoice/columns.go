/*
columns.go - Invoice export column mapping

PURPOSE:
  Binds output header names to the fixed internal field vocabulary of the
  invoice export. This is deliberately distinct from the report column
  registry: invoice exports speak QuickBooks field keys (invoice number,
  due date, item, ...), not the generic report catalog.

FIRST-ROW-ONLY:
  Columns flagged FirstRowOnly render their value on the first row of an
  invoice group and an empty string on every following row. This
  reproduces the header-line-once-per-invoice semantics of line-item CSV
  imports. The invoice number is NOT first-row-only: every line of a
  group repeats it so the import can stitch lines back together.

DEFAULTS:
  DefaultColumns() returns a fresh copy each call. Callers may reorder or
  trim their copy without contaminating concurrent export sessions.
*/
package invoice

// FieldKey names one value the invoice renderer can produce per row.
type FieldKey string

const (
	FieldInvoiceNumber FieldKey = "invoice_number"
	FieldCustomer      FieldKey = "customer"
	FieldInvoiceDate   FieldKey = "invoice_date"
	FieldDueDate       FieldKey = "due_date"
	FieldTerms         FieldKey = "terms"
	FieldLocation      FieldKey = "location"
	FieldItem          FieldKey = "item"
	FieldDescription   FieldKey = "description"
	FieldServiceDate   FieldKey = "service_date"
	FieldQuantity      FieldKey = "quantity"
	FieldRate          FieldKey = "rate"
	FieldAmount        FieldKey = "amount"
)

// ColumnMapping binds one output column to a field key.
type ColumnMapping struct {
	Header       string
	Field        FieldKey
	FirstRowOnly bool
}

// DefaultColumns returns the QuickBooks invoice import layout. The
// returned slice is a fresh copy; mutate freely.
func DefaultColumns() []ColumnMapping {
	return []ColumnMapping{
		{Header: "InvoiceNo", Field: FieldInvoiceNumber},
		{Header: "Customer", Field: FieldCustomer, FirstRowOnly: true},
		{Header: "InvoiceDate", Field: FieldInvoiceDate, FirstRowOnly: true},
		{Header: "DueDate", Field: FieldDueDate, FirstRowOnly: true},
		{Header: "Terms", Field: FieldTerms, FirstRowOnly: true},
		{Header: "Location", Field: FieldLocation, FirstRowOnly: true},
		{Header: "Item(Product/Service)", Field: FieldItem},
		{Header: "ItemDescription", Field: FieldDescription},
		{Header: "ServiceDate", Field: FieldServiceDate},
		{Header: "ItemQuantity", Field: FieldQuantity},
		{Header: "ItemRate", Field: FieldRate},
		{Header: "ItemAmount", Field: FieldAmount},
	}
}

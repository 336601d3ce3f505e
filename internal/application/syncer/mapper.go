package syncer

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arflow/backend/internal/domain/receivable"
	"github.com/arflow/backend/internal/infrastructure/acumatica"
)

// ---------------------------------------------------------------------------
// Field maps
// ---------------------------------------------------------------------------

// fieldMapping pairs one ERP field name with its local snake_case name.
type fieldMapping struct {
	erpName   string
	localName string
}

// Field maps translate the ERP's field names to the local snake_case schema.
// Unmapped fields are dropped from the normalized form; the full raw record
// is always retained under raw_data. The maps are ordered: when several ERP
// fields share a local name, the first one present wins, so the preferred
// field goes first.
var customerFieldMap = []fieldMapping{
	{"CustomerID", "customer_id"},
	{"CustomerName", "customer_name"},
	{"Email", "email"},
	{"Phone1", "phone"},
	{"CustomerStatus", "status"},
	{"Status", "status"},
	{"Balance", "balance"},
	{"Terms", "terms"},
	{"LastModifiedDateTime", "last_modified_datetime"},
}

var invoiceFieldMap = []fieldMapping{
	{"ReferenceNbr", "reference_nbr"},
	{"Type", "doc_type"},
	{"Customer", "customer_id"},
	{"CustomerID", "customer_id"},
	{"Status", "status"},
	{"Date", "date"},
	{"DueDate", "due_date"},
	{"Amount", "amount"},
	{"Balance", "balance"},
	{"Description", "description"},
	{"LastModifiedDateTime", "last_modified_datetime"},
}

var paymentFieldMap = []fieldMapping{
	{"ReferenceNbr", "reference_nbr"},
	{"Type", "doc_type"},
	{"CustomerID", "customer_id"},
	{"Status", "status"},
	{"ApplicationDate", "application_date"},
	{"PaymentAmount", "payment_amount"},
	{"AvailableBalance", "unapplied_balance"},
	{"PaymentMethod", "payment_method"},
	{"Description", "description"},
	{"LastModifiedDateTime", "last_modified_datetime"},
}

func fieldMapFor(entityType receivable.EntityType) []fieldMapping {
	switch entityType {
	case receivable.EntityCustomer:
		return customerFieldMap
	case receivable.EntityInvoice:
		return invoiceFieldMap
	case receivable.EntityPayment:
		return paymentFieldMap
	default:
		return nil
	}
}

// ---------------------------------------------------------------------------
// Normalization
// ---------------------------------------------------------------------------

// NormalizedRecord is one ERP record after field-name mapping and type
// coercion. Values are string, bool, decimal.Decimal or canonical RFC3339
// date strings.
type NormalizedRecord map[string]any

var numericPattern = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// dateLayouts are tried in order when coercing date-named fields. The ERP
// emits ISO-8601 with or without offset/milliseconds depending on the field.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// MapRecord normalizes one raw ERP record for an entity type: unwraps tagged
// values, applies the field map, coerces types and zero-pads the reference
// number. The full raw record is kept under raw_data.
func MapRecord(record acumatica.Record, entityType receivable.EntityType) NormalizedRecord {
	normalized := NormalizedRecord{"raw_data": record.JSON()}
	for _, field := range fieldMapFor(entityType) {
		value, ok := record.Value(field.erpName)
		if !ok || value == nil {
			continue
		}
		if _, exists := normalized[field.localName]; exists {
			continue
		}
		normalized[field.localName] = coerceValue(field.localName, value)
	}
	// The reference number is a key, never a quantity: undo any numeric
	// coercion and zero-pad it.
	switch ref := normalized["reference_nbr"].(type) {
	case string:
		normalized["reference_nbr"] = receivable.NormalizeRefNbr(ref)
	case decimal.Decimal:
		normalized["reference_nbr"] = receivable.NormalizeRefNbr(ref.String())
	}
	return normalized
}

// coerceValue applies the coercion rules in precedence order: date-named
// fields re-emit as RFC3339 (raw string when unparseable), booleans and
// numbers pass through, numeric-looking strings become numbers, everything
// else stays a string.
func coerceValue(localName string, value any) any {
	if isDateField(localName) {
		if s, ok := asString(value); ok {
			if parsed, err := parseDate(s); err == nil {
				return parsed.UTC().Format(time.RFC3339)
			}
			return s
		}
	}
	switch v := value.(type) {
	case bool:
		return v
	case json.Number:
		if d, err := decimal.NewFromString(v.String()); err == nil {
			return d
		}
		return v.String()
	case float64:
		return decimal.NewFromFloat(v)
	case string:
		if numericPattern.MatchString(v) {
			if d, err := decimal.NewFromString(v); err == nil {
				return d
			}
		}
		return v
	default:
		return value
	}
}

func isDateField(localName string) bool {
	lower := strings.ToLower(localName)
	return strings.Contains(lower, "date")
}

func asString(value any) (string, bool) {
	s, ok := value.(string)
	return s, ok
}

func parseDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			return parsed, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// ---------------------------------------------------------------------------
// Typed accessors
// ---------------------------------------------------------------------------

// String returns the field as a string, rendering coerced numbers back to
// their decimal text.
func (n NormalizedRecord) String(key string) string {
	switch v := n[key].(type) {
	case string:
		return v
	case decimal.Decimal:
		return v.String()
	default:
		return ""
	}
}

// Decimal returns the field as a decimal, zero when absent or non-numeric.
func (n NormalizedRecord) Decimal(key string) decimal.Decimal {
	switch v := n[key].(type) {
	case decimal.Decimal:
		return v
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return decimal.Zero
}

// Time returns the field as a time pointer, nil when absent or unparseable.
func (n NormalizedRecord) Time(key string) *time.Time {
	s, ok := n[key].(string)
	if !ok {
		return nil
	}
	parsed, err := parseDate(s)
	if err != nil {
		return nil
	}
	utc := parsed.UTC()
	return &utc
}

// ---------------------------------------------------------------------------
// Entity builders
// ---------------------------------------------------------------------------

// BuildCustomer projects a normalized record into a customer entity.
func BuildCustomer(n NormalizedRecord) (*receivable.Customer, error) {
	customerID := n.String("customer_id")
	if customerID == "" {
		return nil, receivable.ErrMissingCustomerID
	}
	customer := receivable.NewCustomer(customerID)
	customer.CustomerName = n.String("customer_name")
	customer.Email = n.String("email")
	customer.Phone = n.String("phone")
	customer.Status = n.String("status")
	customer.Balance = n.Decimal("balance")
	customer.Terms = n.String("terms")
	customer.RawData = n.String("raw_data")
	customer.LastSyncAt = time.Now()
	return customer, nil
}

// BuildInvoice projects a normalized record into an invoice entity.
func BuildInvoice(n NormalizedRecord) (*receivable.Invoice, error) {
	refNbr := n.String("reference_nbr")
	if refNbr == "" {
		return nil, receivable.ErrMissingReferenceNbr
	}
	docType := receivable.DocType(n.String("doc_type"))
	if docType == "" {
		docType = receivable.DocTypeInvoice
	}
	invoice := receivable.NewInvoice(refNbr, docType)
	invoice.CustomerID = n.String("customer_id")
	invoice.Status = n.String("status")
	invoice.Date = n.Time("date")
	invoice.DueDate = n.Time("due_date")
	invoice.Amount = n.Decimal("amount")
	invoice.Balance = n.Decimal("balance")
	invoice.Description = n.String("description")
	invoice.RawData = n.String("raw_data")
	invoice.LastSyncAt = time.Now()
	return invoice, nil
}

// BuildPayment projects a normalized record into a payment entity.
func BuildPayment(n NormalizedRecord) (*receivable.Payment, error) {
	refNbr := n.String("reference_nbr")
	if refNbr == "" {
		return nil, receivable.ErrMissingReferenceNbr
	}
	docType := receivable.DocType(n.String("doc_type"))
	if docType == "" {
		docType = receivable.DocTypePayment
	}
	payment := receivable.NewPayment(refNbr, docType)
	payment.CustomerID = n.String("customer_id")
	payment.Status = n.String("status")
	payment.ApplicationDate = n.Time("application_date")
	payment.PaymentAmount = n.Decimal("payment_amount")
	payment.UnappliedBalance = n.Decimal("unapplied_balance")
	payment.PaymentMethod = n.String("payment_method")
	payment.Description = n.String("description")
	payment.RawData = n.String("raw_data")
	payment.LastSyncAt = time.Now()
	return payment, nil
}

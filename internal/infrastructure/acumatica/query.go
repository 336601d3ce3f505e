package acumatica

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// odataTimeLayout is the datetime literal layout Acumatica's OData filter
// accepts: ISO-8601 without milliseconds.
const odataTimeLayout = "2006-01-02T15:04:05"

// Query builds the OData-flavored query string for an entity list fetch.
type Query struct {
	// Entity is the entity type path segment (Customer, Invoice, Payment).
	Entity  string
	filters []string
	selects []string
	expands []string
	top     int
	skip    int
}

// NewQuery creates a query for the given entity type.
func NewQuery(entity string) *Query {
	return &Query{Entity: entity}
}

// Filter appends a raw filter expression; expressions are joined with "and".
func (q *Query) Filter(expr string) *Query {
	if expr != "" {
		q.filters = append(q.filters, expr)
	}
	return q
}

// ModifiedSince filters to records modified strictly after the cutoff.
func (q *Query) ModifiedSince(cutoff time.Time) *Query {
	return q.Filter(Gt("LastModifiedDateTime", DateTimeLiteral(cutoff)))
}

// Select restricts the returned fields.
func (q *Query) Select(fields ...string) *Query {
	q.selects = append(q.selects, fields...)
	return q
}

// Expand includes nested detail entities in the response.
func (q *Query) Expand(entities ...string) *Query {
	q.expands = append(q.expands, entities...)
	return q
}

// Page sets count/skip pagination for bulk fetches.
func (q *Query) Page(top, skip int) *Query {
	q.top = top
	q.skip = skip
	return q
}

// Values encodes the query as URL parameters.
func (q *Query) Values() url.Values {
	values := url.Values{}
	if len(q.filters) > 0 {
		values.Set("$filter", strings.Join(q.filters, " and "))
	}
	if len(q.selects) > 0 {
		values.Set("$select", strings.Join(q.selects, ","))
	}
	if len(q.expands) > 0 {
		values.Set("$expand", strings.Join(q.expands, ","))
	}
	if q.top > 0 {
		values.Set("$top", strconv.Itoa(q.top))
	}
	if q.skip > 0 {
		values.Set("$skip", strconv.Itoa(q.skip))
	}
	return values
}

// Eq builds an equality filter expression. String literals are quoted.
func Eq(field, literal string) string {
	return fmt.Sprintf("%s eq %s", field, literal)
}

// Ne builds an inequality filter expression.
func Ne(field, literal string) string {
	return fmt.Sprintf("%s ne %s", field, literal)
}

// Gt builds a greater-than filter expression.
func Gt(field, literal string) string {
	return fmt.Sprintf("%s gt %s", field, literal)
}

// StringLiteral quotes a string for use in a filter expression.
func StringLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// DateTimeLiteral formats a datetime for use in a filter expression.
func DateTimeLiteral(t time.Time) string {
	return "datetimeoffset'" + t.UTC().Format(odataTimeLayout) + "'"
}

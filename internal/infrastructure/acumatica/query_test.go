package acumatica

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParseTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return parsed
}

func TestQuery_Values(t *testing.T) {
	t.Run("modified-since filter uses datetimeoffset literal without milliseconds", func(t *testing.T) {
		cutoff := mustParseTime(t, "2024-03-01T09:15:30.123Z")
		values := NewQuery("Invoice").ModifiedSince(cutoff).Values()

		assert.Equal(t, "LastModifiedDateTime gt datetimeoffset'2024-03-01T09:15:30'", values.Get("$filter"))
	})

	t.Run("cutoff is normalized to UTC", func(t *testing.T) {
		loc := time.FixedZone("UTC+7", 7*3600)
		cutoff := time.Date(2024, 3, 1, 16, 0, 0, 0, loc)

		assert.Equal(t, "datetimeoffset'2024-03-01T09:00:00'", DateTimeLiteral(cutoff))
	})

	t.Run("filters are joined with and", func(t *testing.T) {
		values := NewQuery("Payment").
			Filter(Ne("Type", StringLiteral("Credit Memo"))).
			Filter(Gt("ReferenceNbr", StringLiteral("000100"))).
			Values()

		assert.Equal(t, "Type ne 'Credit Memo' and ReferenceNbr gt '000100'", values.Get("$filter"))
	})

	t.Run("pagination and expansion", func(t *testing.T) {
		values := NewQuery("Payment").Expand("ApplicationHistory").Page(50, 100).Values()

		assert.Equal(t, "ApplicationHistory", values.Get("$expand"))
		assert.Equal(t, "50", values.Get("$top"))
		assert.Equal(t, "100", values.Get("$skip"))
	})

	t.Run("zero skip is omitted", func(t *testing.T) {
		values := NewQuery("Customer").Page(50, 0).Values()

		assert.Equal(t, "50", values.Get("$top"))
		assert.False(t, values.Has("$skip"))
	})

	t.Run("string literals escape embedded quotes", func(t *testing.T) {
		assert.Equal(t, "'O''Brien'", StringLiteral("O'Brien"))
	})
}

package postgres

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimalNumericRoundTrip(t *testing.T) {
	for _, value := range []string{"0", "10600.00", "522.12", "7.5", "-3.25"} {
		original := decimal.RequireFromString(value)

		num, err := decimalToPgNumeric(original)
		require.NoError(t, err)
		assert.True(t, num.Valid)

		back := pgNumericToDecimal(num)
		assert.True(t, original.Equal(back), "value %s came back as %s", value, back)
	}
}

func TestPgNumericToDecimal_Null(t *testing.T) {
	assert.True(t, pgNumericToDecimal(pgtype.Numeric{}).IsZero())
	assert.Nil(t, pgNumericToDecimalPtr(pgtype.Numeric{}))
}

func TestPgNumericToDecimalPtr(t *testing.T) {
	num, err := decimalToPgNumeric(decimal.RequireFromString("600.00"))
	require.NoError(t, err)

	ptr := pgNumericToDecimalPtr(num)
	require.NotNil(t, ptr)
	assert.Equal(t, "600.00", ptr.StringFixed(2))
}

func TestPgTextToPtr(t *testing.T) {
	assert.Nil(t, pgTextToPtr(pgtype.Text{}))

	ptr := pgTextToPtr(pgtype.Text{String: "cash", Valid: true})
	require.NotNil(t, ptr)
	assert.Equal(t, "cash", *ptr)
}

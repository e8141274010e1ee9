package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericConversion(t *testing.T) {
	for _, s := range []string{"0", "10258.27", "-6000.50", "0.0025"} {
		t.Run(s, func(t *testing.T) {
			d := decimal.RequireFromString(s)
			n, err := decimalToPgNumeric(d)
			require.NoError(t, err)
			assert.True(t, pgNumericToDecimal(n).Equal(d))
		})
	}
}

func TestOptionalConversions(t *testing.T) {
	n, err := optionalDecimalToPgNumeric(nil)
	require.NoError(t, err)
	assert.False(t, n.Valid)
	assert.Nil(t, pgNumericToOptionalDecimal(n))
	assert.True(t, pgNumericToDecimal(pgtype.Numeric{}).IsZero())

	assert.False(t, optionalTimeToPgDate(nil).Valid)
	assert.Nil(t, pgDateToOptionalTime(pgtype.Date{}))
	assert.True(t, pgDateToTime(pgtype.Date{}).IsZero())

	day := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	got := pgDateToOptionalTime(optionalTimeToPgDate(&day))
	require.NotNil(t, got)
	assert.True(t, got.Equal(day))

	assert.Nil(t, pgInt4ToOptionalInt(optionalIntToPgInt4(nil)))
	tenure := 60
	v := pgInt4ToOptionalInt(optionalIntToPgInt4(&tenure))
	require.NotNil(t, v)
	assert.Equal(t, 60, *v)
}

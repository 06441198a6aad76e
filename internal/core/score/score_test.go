package score

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestField(t *testing.T) {
	tests := []struct {
		name   string
		data   map[string]interface{}
		field  string
		want   decimal.Decimal
		wantOK bool
	}{
		{
			name:  "missing field",
			data:  map[string]interface{}{"score": 1},
			field: "maxScore",
			want:  decimal.Zero,
		},
		{
			name:   "float64 from JSON",
			data:   map[string]interface{}{"score": 17.5},
			field:  "score",
			want:   decimal.RequireFromString("17.5"),
			wantOK: true,
		},
		{
			name:   "float32",
			data:   map[string]interface{}{"score": float32(7.25)},
			field:  "score",
			want:   decimal.RequireFromString("7.25"),
			wantOK: true,
		},
		{
			name:   "int",
			data:   map[string]interface{}{"score": 20},
			field:  "score",
			want:   decimal.NewFromInt(20),
			wantOK: true,
		},
		{
			name:   "int64",
			data:   map[string]interface{}{"score": int64(9)},
			field:  "score",
			want:   decimal.NewFromInt(9),
			wantOK: true,
		},
		{
			name:   "decimal string",
			data:   map[string]interface{}{"score": "42.125"},
			field:  "score",
			want:   decimal.RequireFromString("42.125"),
			wantOK: true,
		},
		{
			name:  "invalid string",
			data:  map[string]interface{}{"score": "twenty"},
			field: "score",
			want:  decimal.Zero,
		},
		{
			name:  "unsupported type",
			data:  map[string]interface{}{"score": true},
			field: "score",
			want:  decimal.Zero,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Field(tc.data, tc.field)
			require.Equal(t, tc.wantOK, ok)
			require.True(t, tc.want.Equal(got), "want %s, got %s", tc.want, got)
		})
	}
}

func TestPercentage(t *testing.T) {
	pct, err := Percentage(decimal.NewFromInt(18), decimal.NewFromInt(20))
	require.NoError(t, err)
	require.True(t, pct.Equal(decimal.NewFromInt(90)))
	require.True(t, AtLeast(pct, 90))
	require.False(t, AtLeast(pct, 91))

	// 0.1 + 0.2 style inputs stay exact.
	pct, err = Percentage(decimal.RequireFromString("0.3"), decimal.RequireFromString("0.3"))
	require.NoError(t, err)
	require.True(t, AtLeast(pct, 100))

	_, err = Percentage(decimal.NewFromInt(5), decimal.Zero)
	require.ErrorIs(t, err, ErrNoMaxScore)
}

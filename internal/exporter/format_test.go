package exporter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"salesdash/internal/shared/testutil"
)

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "$0.00"},
		{"5", "$5.00"},
		{"1234.56", "$1,234.56"},
		{"322966.749", "$322,966.75"},
		{"1000000", "$1,000,000.00"},
		{"-42.5", "-$42.50"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCurrency(testutil.Dec(tt.in)))
		})
	}
}

func TestFormatQuantity(t *testing.T) {
	assert.Equal(t, "0", FormatQuantity(0))
	assert.Equal(t, "5510", FormatQuantity(5510))
	assert.Equal(t, "1234567", FormatQuantity(1234567))
}

func TestFormatRating(t *testing.T) {
	assert.Equal(t, NotAvailable, FormatRating(nil))
	assert.Equal(t, "6.97", FormatRating(testutil.Rating(6.9727)))
	assert.Equal(t, "7.00", FormatRating(testutil.Rating(7)))
}

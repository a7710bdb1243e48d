package payroll

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPAYE(t *testing.T) {
	brackets := DefaultStatutoryRates().PAYEBrackets

	tests := []struct {
		income string
		want   string
	}{
		{"0", "0"},
		{"490", "0"},
		{"600", "5.5"},
		{"730", "18.5"},
		{"1000", "65.75"},
		{"3896.67", "572.67"},
		{"20000", "4603.67"},
	}
	for _, tt := range tests {
		t.Run(tt.income, func(t *testing.T) {
			got := PAYE(decimal.RequireFromString(tt.income), brackets)
			assertDecimal(t, tt.want, got.Round(2))
		})
	}
}

func TestPAYE_TableWithoutOpenBand(t *testing.T) {
	brackets, err := ParseBrackets("100:0,100:10")
	require.NoError(t, err)

	// Income past the table is taxed at the last rate
	assertDecimal(t, "30", PAYE(decimal.NewFromInt(400), brackets))
}

func TestParseBrackets(t *testing.T) {
	brackets, err := ParseBrackets(" 490:0, 110:5 ,:35")
	require.NoError(t, err)
	require.Len(t, brackets, 3)
	assertDecimal(t, "490", *brackets[0].Width)
	assertDecimal(t, "5", brackets[1].Rate)
	assert.Nil(t, brackets[2].Width)
}

func TestParseBrackets_Errors(t *testing.T) {
	tests := []struct {
		name string
		spec string
	}{
		{"missing separator", "490"},
		{"bad rate", "490:x"},
		{"negative rate", "490:-1"},
		{"bad width", "abc:5"},
		{"zero width", "0:5"},
		{"open band not last", ":5,100:10"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBrackets(tt.spec)
			assert.Error(t, err)
		})
	}
}

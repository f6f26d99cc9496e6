package currency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "12", want: "12.00"},
		{in: "12,5", want: "12.50"},
		{in: " 3.14159 ", want: "3.14"},
		{in: "2.345", want: "2.35"},
		{in: "12,5 €", want: "12.50"},
		{in: "-7,1", want: "-7.10"},
		{in: ",5", want: "0.50"},
		{in: "1,234,5", want: "1.23"},
		{in: "", want: "0.00"},
		{in: "abc", want: "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.in).String())
		})
	}
}

func TestDisplay(t *testing.T) {
	a := Parse("1999,9")
	assert.Equal(t, "1999.90 €", a.Display(Euro))
	assert.Equal(t, "1999.90 £", a.Display(Pound))
	assert.Equal(t, "1999.90", a.Display(""))
	assert.InDelta(t, 1999.9, a.Float64(), 1e-9)
	assert.Equal(t, "0.10", FromFloat(0.1).String())
}

func TestParseCurrency(t *testing.T) {
	c, err := ParseCurrency("usd")
	require.NoError(t, err)
	assert.Equal(t, Dollar, c)

	c, err = ParseCurrency("")
	require.NoError(t, err)
	assert.Equal(t, Euro, c)

	_, err = ParseCurrency("JPY")
	assert.Error(t, err)
}

func TestValidator(t *testing.T) {
	v := NewValidator(100, "")
	assert.Equal(t, "", v.Validate("99,99"))
	assert.Equal(t, "Montant non valide.", v.Validate("100"))
	assert.Equal(t, "Montant non valide.", v.Validate("250,5"))
	assert.Equal(t, "", v.Validate("pas un nombre"))

	custom := NewValidator(10, "too much")
	assert.Equal(t, "too much", custom.Validate("10.001"))
}

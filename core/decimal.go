package core

import (
	"math/big"

	"github.com/shopspring/decimal"
	"gopkg.in/inf.v0"
)

// Decimal is an arbitrary-precision decimal: unscaled * 10^-scale.
type Decimal struct {
	unscaled *big.Int
	scale    int32
}

func NewDecimal(unscaled *big.Int, scale int32) Decimal {
	u := new(big.Int)
	if unscaled != nil {
		u.Set(unscaled)
	}
	return Decimal{unscaled: u, scale: scale}
}

// DecimalFromString parses a decimal literal such as "-12.345".
func DecimalFromString(s string) (Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal{}, err
	}
	return DecimalFromShopspring(d), nil
}

func DecimalFromShopspring(d decimal.Decimal) Decimal {
	return NewDecimal(d.Coefficient(), -d.Exponent())
}

func (d Decimal) Unscaled() *big.Int {
	if d.unscaled == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(d.unscaled)
}

func (d Decimal) Scale() int32 {
	return d.scale
}

// Shopspring converts the value for arithmetic.
func (d Decimal) Shopspring() decimal.Decimal {
	return decimal.NewFromBigInt(d.Unscaled(), -d.scale)
}

// Equal compares numerically, so 1.10 equals 1.1.
func (d Decimal) Equal(other Decimal) bool {
	return d.Shopspring().Equal(other.Shopspring())
}

func (d Decimal) String() string {
	return d.Shopspring().String()
}

func (d Decimal) toInf() *inf.Dec {
	return inf.NewDecBig(d.Unscaled(), inf.Scale(d.scale))
}

func decimalFromInf(dec *inf.Dec) Decimal {
	return NewDecimal(dec.UnscaledBig(), int32(dec.Scale()))
}

package types

import (
	"github.com/shopspring/decimal"
)

// Money renders a decimal amount as a JSON number with two decimal places.
type Money decimal.Decimal

func NewMoney(d decimal.Decimal) Money {
	return Money(d)
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.Decimal(m)
}

func (m Money) String() string {
	return decimal.Decimal(m).StringFixed(2)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(m).StringFixed(2)), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	*m = Money(d)
	return nil
}

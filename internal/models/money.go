package models

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Money is the platform amount type. Amounts are Chilean pesos, which
// have no minor unit, so values are always rounded to whole pesos.
type Money struct {
	decimal.Decimal
}

// NewMoney creates a Money from an integer peso amount.
func NewMoney(amount int64) Money {
	return Money{Decimal: decimal.NewFromInt(amount)}
}

// NewMoneyFromDecimal creates a Money from a decimal, rounding to whole pesos.
func NewMoneyFromDecimal(amount decimal.Decimal) Money {
	return Money{Decimal: amount.Round(0)}
}

// Int64 returns the amount as integer pesos.
func (m Money) Int64() int64 {
	return m.Decimal.Round(0).IntPart()
}

// MarshalJSON renders the amount as a JSON number of whole pesos.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Decimal.Round(0).IntPart())
}

// UnmarshalJSON accepts either a number or a numeric string.
func (m *Money) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		m.Decimal = d.Round(0)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	m.Decimal = decimal.NewFromFloat(f).Round(0)
	return nil
}

// Value implements driver.Valuer.
func (m Money) Value() (driver.Value, error) {
	return m.Decimal.Round(0).Value()
}

// Scan implements sql.Scanner.
func (m *Money) Scan(value interface{}) error {
	if err := m.Decimal.Scan(value); err != nil {
		return err
	}
	m.Decimal = m.Decimal.Round(0)
	return nil
}

// String returns the whole-peso representation.
func (m Money) String() string {
	return m.Decimal.Round(0).StringFixed(0)
}

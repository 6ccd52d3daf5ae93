package domain

import "fmt"

// DefaultCurrency labels amounts on the wire. The ledger itself is
// single-currency; amounts are int64 minor units everywhere.
const DefaultCurrency = "ETB"

// Money holds an amount in minor units (100 = 1.00 ETB).
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func NewMoney(amount int64) Money {
	return Money{Amount: amount, Currency: DefaultCurrency}
}

func (m Money) String() string {
	return fmt.Sprintf("%d.%02d %s", m.Amount/100, m.Amount%100, m.Currency)
}

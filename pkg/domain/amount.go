package domain

import (
	"encoding/json"
	"math/big"
	"strings"

	dErrors "mintpress/pkg/domain-errors"
)

// weiPerEther is 10^18.
var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Amount is an arbitrary-precision quantity of value in the ledger's smallest
// unit (wei). The zero value is 0. Amounts are immutable: arithmetic returns
// new values and never aliases the operands.
type Amount struct {
	v *big.Int
}

// NewAmount returns an amount of n wei.
func NewAmount(n int64) Amount {
	return Amount{v: big.NewInt(n)}
}

// Ether returns n whole ether expressed in wei.
func Ether(n int64) Amount {
	return Amount{v: new(big.Int).Mul(big.NewInt(n), weiPerEther)}
}

// AmountFromBig copies b into an Amount. A nil b is zero.
func AmountFromBig(b *big.Int) Amount {
	if b == nil {
		return Amount{}
	}
	return Amount{v: new(big.Int).Set(b)}
}

// ParseAmount parses a base-10 integer string of wei.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, dErrors.New(dErrors.CodeInvalidInput, "amount must not be empty")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, dErrors.New(dErrors.CodeInvalidInput, "amount must be a base-10 integer")
	}
	return Amount{v: v}, nil
}

// Big returns a copy of the underlying integer.
func (a Amount) Big() *big.Int {
	if a.v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.v)
}

func (a Amount) Add(b Amount) Amount {
	return Amount{v: new(big.Int).Add(a.Big(), b.Big())}
}

func (a Amount) Sub(b Amount) Amount {
	return Amount{v: new(big.Int).Sub(a.Big(), b.Big())}
}

// Cmp compares a and b like big.Int.Cmp.
func (a Amount) Cmp(b Amount) int {
	return a.Big().Cmp(b.Big())
}

func (a Amount) Sign() int {
	if a.v == nil {
		return 0
	}
	return a.v.Sign()
}

func (a Amount) IsZero() bool {
	return a.Sign() == 0
}

func (a Amount) IsNegative() bool {
	return a.Sign() < 0
}

func (a Amount) String() string {
	if a.v == nil {
		return "0"
	}
	return a.v.String()
}

// MarshalJSON encodes the amount as a decimal string; wei values overflow
// JSON numbers in most clients.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts a decimal string or a bare JSON integer.
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*a = Amount{}
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = s
	}
	parsed, err := ParseAmount(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

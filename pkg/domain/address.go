package domain

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"

	dErrors "mintpress/pkg/domain-errors"
)

// AddressLength is the byte length of an account address.
const AddressLength = 20

// Address identifies an account on the ledger. It is a domain primitive:
// construct it through ParseAddress at trust boundaries.
//
// The canonical text form is the EIP-55 mixed-case checksum encoding.
// Parsing accepts all-lowercase and all-uppercase hex, and mixed case only
// when the checksum matches.
type Address [AddressLength]byte

// ZeroAddress is the unset address. It never identifies a real account.
var ZeroAddress Address

// ParseAddress validates a 0x-prefixed, 40 hex digit account address.
func ParseAddress(s string) (Address, error) {
	var a Address
	raw, ok := strings.CutPrefix(s, "0x")
	if !ok {
		raw, ok = strings.CutPrefix(s, "0X")
	}
	if !ok || len(raw) != 2*AddressLength {
		return a, dErrors.New(dErrors.CodeInvalidInput, "address must be 0x followed by 40 hex digits")
	}
	if _, err := hex.Decode(a[:], []byte(raw)); err != nil {
		return ZeroAddress, dErrors.New(dErrors.CodeInvalidInput, "address must be 0x followed by 40 hex digits")
	}
	if raw != strings.ToLower(raw) && raw != strings.ToUpper(raw) {
		if a.String()[2:] != raw {
			return ZeroAddress, dErrors.New(dErrors.CodeInvalidInput, "address checksum mismatch")
		}
	}
	return a, nil
}

// MustParseAddress is ParseAddress for constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Hex returns the lowercase 0x-prefixed encoding. Stores use it as the key form.
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

// String returns the EIP-55 checksummed encoding.
func (a Address) String() string {
	lower := []byte(hex.EncodeToString(a[:]))
	h := sha3.NewLegacyKeccak256()
	h.Write(lower)
	digest := h.Sum(nil)

	out := make([]byte, 2+len(lower))
	out[0], out[1] = '0', 'x'
	for i, c := range lower {
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if c >= 'a' && c <= 'f' && nibble&0x0f >= 8 {
			c -= 'a' - 'A'
		}
		out[2+i] = c
	}
	return string(out)
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

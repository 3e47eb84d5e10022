package domain

import (
	"strconv"
	"strings"

	dErrors "mintpress/pkg/domain-errors"
)

// CredentialID identifies an issued credential. Ids start at 1 and are never
// reused; 0 means "unset" (for example, an account without a profile).
type CredentialID uint64

// PostID identifies a post. Ids start at 1; 0 never names a post.
type PostID uint64

// ParseCredentialID parses a positive base-10 credential id.
func ParseCredentialID(s string) (CredentialID, error) {
	n, err := parsePositive(s, "credential id")
	return CredentialID(n), err
}

// ParsePostID parses a positive base-10 post id.
func ParsePostID(s string) (PostID, error) {
	n, err := parsePositive(s, "post id")
	return PostID(n), err
}

func (id CredentialID) String() string { return strconv.FormatUint(uint64(id), 10) }
func (id CredentialID) IsNil() bool    { return id == 0 }

func (id PostID) String() string { return strconv.FormatUint(uint64(id), 10) }
func (id PostID) IsNil() bool    { return id == 0 }

func parsePositive(s, what string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, what+" is required")
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid "+what)
	}
	if n == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, what+" must be positive")
	}
	return n, nil
}

// Package content computes and checks the content addresses posts refer to.
package content

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	dErrors "mintpress/pkg/domain-errors"
)

// Hash returns the CIDv1 (raw codec, sha2-256) of data, the address a client
// would get by adding the bytes to IPFS with raw leaves.
func Hash(data []byte) (string, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("hash content: %w", err)
	}
	return cid.NewCidV1(cid.Raw, sum).String(), nil
}

// Validate checks that hash parses as a CID of any version.
func Validate(hash string) error {
	if hash == "" {
		return dErrors.New(dErrors.CodeInvalidArgument, "content hash must not be empty")
	}
	if _, err := cid.Decode(hash); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidArgument, "content hash is not a valid CID")
	}
	return nil
}

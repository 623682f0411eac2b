package ens

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	goens "github.com/wealdtech/go-ens/v3"
)

const tld = ".eth"

var ErrInvalidLabel = errors.New("invalid ENS label")

// IdentifierOf returns the registrar token id of label: keccak256 of its
// UTF-8 bytes read as an unsigned 256-bit integer.
func IdentifierOf(label string) *big.Int {
	return new(big.Int).SetBytes(crypto.Keccak256([]byte(label)))
}

// NormalizeLabel turns user input such as " Vitalik.eth " into the
// second-level label "vitalik".
func NormalizeLabel(input string) (string, error) {
	label := strings.ToLower(strings.TrimSpace(input))
	label = strings.TrimSuffix(label, tld)
	if label == "" {
		return "", fmt.Errorf("%w: empty name", ErrInvalidLabel)
	}
	normalized, err := goens.Normalize(label)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidLabel, input, err)
	}
	if normalized == "" || strings.Contains(normalized, ".") {
		return "", fmt.Errorf("%w: %q is not a second-level .eth name", ErrInvalidLabel, input)
	}
	return normalized, nil
}

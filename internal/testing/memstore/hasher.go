package memstore

import "strings"

// PlainHasher is a reversible stand-in for bcrypt that keeps tests fast.
type PlainHasher struct{}

const plainPrefix = "plain$"

// Hash tags the password so it is never stored verbatim.
func (PlainHasher) Hash(plain string) (string, error) {
	return plainPrefix + plain, nil
}

// Compare reports whether hash was produced from plain.
func (PlainHasher) Compare(hash, plain string) bool {
	return strings.HasPrefix(hash, plainPrefix) && hash[len(plainPrefix):] == plain
}

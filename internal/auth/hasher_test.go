package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	hash, err := h.Hash("s3cret-pass")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret-pass", hash)
	require.True(t, h.Compare(hash, "s3cret-pass"))
	require.False(t, h.Compare(hash, "s3cret-pasS"))
	require.False(t, h.Compare("garbage", "s3cret-pass"))

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	require.Equal(t, bcrypt.MinCost, cost)

	require.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(99).cost)
}

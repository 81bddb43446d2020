package security

import (
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/openbiocard/openbiocard-backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastHasher() *Hasher {
	return NewHasher(config.PasswordConfig{
		ArgonMemoryKB:    64,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	})
}

func TestHashAndVerify(t *testing.T) {
	h := fastHasher()
	encoded, err := h.Hash("hunter2")
	require.NoError(t, err)
	assert.Contains(t, encoded, "$argon2id$v=19$m=64,t=1,p=1$")

	assert.True(t, h.Verify("hunter2", encoded))
	assert.False(t, h.Verify("hunter3", encoded))

	other, err := h.Hash("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, encoded, other, "salts must differ")
}

func TestHashRejectsEmptyPassword(t *testing.T) {
	_, err := fastHasher().Hash("")
	require.Error(t, err)
}

func TestVerifyRejectsMalformedHashes(t *testing.T) {
	h := fastHasher()
	for _, encoded := range []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=64,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=64,t=1,p=1$!!!$a2V5",
	} {
		assert.False(t, h.Verify("pw", encoded), encoded)
	}
}

func TestParamsAreClamped(t *testing.T) {
	params := paramsFromConfig(config.PasswordConfig{ArgonMemoryKB: 1, ArgonTime: 99, ArgonParallelism: 0, ArgonSaltLen: 1, ArgonKeyLen: 1000})
	assert.EqualValues(t, 8, params.Memory)
	assert.EqualValues(t, 10, params.Time)
	assert.EqualValues(t, 1, params.Parallelism)
	assert.EqualValues(t, 8, params.SaltLen)
	assert.EqualValues(t, 64, params.KeyLen)
}

func TestGenerateNumericCodeRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := GenerateNumericCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestNewOpaqueTokenIsUUIDv4(t *testing.T) {
	token := NewOpaqueToken()
	parsed, err := uuid.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())
	assert.NotEqual(t, token, NewOpaqueToken())
}

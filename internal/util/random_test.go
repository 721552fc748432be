package util_test

import (
	"pkce-auth-server/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRandomToken_LengthAndUniqueness(t *testing.T) {
	first, err := util.GenerateRandomToken(32)
	require.NoError(t, err)
	second, err := util.GenerateRandomToken(32)
	require.NoError(t, err)

	// 32 байта в base64url без паддинга дают 43 символа
	assert.Len(t, first, 43)
	assert.NotEqual(t, first, second)
	assert.NotContains(t, first, "=")
}

package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRefreshTokenUsable(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tok := RefreshToken{ExpiresAt: now.Add(time.Minute)}

	assert.True(t, tok.Usable(now))
	assert.False(t, tok.Usable(now.Add(time.Minute)))

	tok.Revoked = true
	assert.False(t, tok.Usable(now))
}

package vault

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEncryptedEntry_IsExpired(t *testing.T) {
	now := time.Now()

	entry := &EncryptedEntry{}
	assert.False(t, entry.IsExpired(now), "no expiry means never expired")

	past := now.Add(-time.Minute)
	entry.Metadata.ExpiresAt = &past
	assert.True(t, entry.IsExpired(now))

	future := now.Add(time.Minute)
	entry.Metadata.ExpiresAt = &future
	assert.False(t, entry.IsExpired(now))
}

func TestContainsType(t *testing.T) {
	types := []MemoryType{TypeFact, TypePreference}
	assert.True(t, containsType(types, TypeFact))
	assert.False(t, containsType(types, TypeSecret))
	assert.False(t, containsType(nil, TypeFact))
}

func TestContainsAllTags(t *testing.T) {
	have := []string{"travel", "work", "music"}
	assert.True(t, containsAllTags(have, nil))
	assert.True(t, containsAllTags(have, []string{"work"}))
	assert.True(t, containsAllTags(have, []string{"work", "travel"}))
	assert.False(t, containsAllTags(have, []string{"work", "food"}))
	assert.False(t, containsAllTags(nil, []string{"work"}))
}

func TestFailureLimiter(t *testing.T) {
	l := newFailureLimiter(0.001, 2)
	assert.True(t, l.enabled())

	// Checking never consumes budget.
	for i := 0; i < 5; i++ {
		assert.False(t, l.blocked("user-a"))
	}

	l.penalize("user-a")
	assert.False(t, l.blocked("user-a"), "one failure within burst")

	l.penalize("user-a")
	assert.True(t, l.blocked("user-a"), "burst exhausted")

	// Budgets are per user.
	assert.False(t, l.blocked("user-b"))
}

func TestFailureLimiter_Disabled(t *testing.T) {
	l := newFailureLimiter(0, 10)
	assert.False(t, l.enabled())

	for i := 0; i < 100; i++ {
		l.penalize("user-a")
	}
	assert.False(t, l.blocked("user-a"), "disabled limiter never blocks")
}

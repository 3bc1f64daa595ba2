package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justsum66/cheersin-gateway/internal/model"
)

func response(msg string) model.ChatResponse {
	return model.ChatResponse{
		Message:          msg,
		Sources:          []model.Source{{Index: 1, Source: "Wine Atlas"}},
		SimilarQuestions: []string{"Tell me more about Rioja"},
	}
}

func TestRoundTrip(t *testing.T) {
	c := New(10*time.Minute, 10)

	c.Store("What pairs with salmon?", "base", response("Pinot Noir."))

	got, ok := c.Lookup("What pairs with salmon?", "base")
	require.True(t, ok)
	assert.Equal(t, response("Pinot Noir."), got)
}

func TestTierPartitioning(t *testing.T) {
	c := New(10*time.Minute, 10)

	c.Store("What pairs with salmon?", "premium", response("Grand Cru."))

	_, ok := c.Lookup("What pairs with salmon?", "base")
	assert.False(t, ok, "base tier must not read a premium entry")

	_, ok = c.Lookup("What pairs with salmon?", "premium")
	assert.True(t, ok)
}

func TestUnknownTierCanonicalizesToBase(t *testing.T) {
	c := New(10*time.Minute, 10)

	c.Store("What pairs with salmon?", "", response("Pinot Noir."))

	_, ok := c.Lookup("What pairs with salmon?", "gold-vip")
	assert.True(t, ok, "unknown tiers share the base partition")
}

func TestExpiredEntryIsAbsent(t *testing.T) {
	now := time.Now()
	c := New(10*time.Minute, 10)
	c.now = func() time.Time { return now }

	c.Store("question", "base", response("answer"))

	now = now.Add(11 * time.Minute)
	_, ok := c.Lookup("question", "base")
	assert.False(t, ok)
}

func TestEvictsOldestAtCapacity(t *testing.T) {
	now := time.Now()
	c := New(time.Hour, 3)
	c.now = func() time.Time { return now }

	for i := 0; i < 4; i++ {
		c.Store(fmt.Sprintf("question %d", i), "base", response("answer"))
		now = now.Add(time.Second)
	}

	assert.Equal(t, 3, c.Len())

	_, ok := c.Lookup("question 0", "base")
	assert.False(t, ok, "the oldest entry is evicted first")

	for i := 1; i < 4; i++ {
		_, ok := c.Lookup(fmt.Sprintf("question %d", i), "base")
		assert.True(t, ok)
	}
}

func TestKeyNormalization(t *testing.T) {
	assert.Equal(t, Key("  What Pairs With Salmon? ", "base"), Key("what pairs with salmon?", ""))

	long := make([]byte, 500)
	for i := range long {
		long[i] = 'a'
	}
	assert.Equal(t, Key(string(long), "base"), Key(string(long)+"tail", "base"))
}

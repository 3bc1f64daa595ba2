package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalTier(t *testing.T) {
	assert.Equal(t, TierPremium, CanonicalTier("premium"))
	assert.Equal(t, TierPremium, CanonicalTier("  Pro "))
	assert.Equal(t, TierPremium, CanonicalTier("PLUS"))
	assert.Equal(t, TierBase, CanonicalTier("base"))
	assert.Equal(t, TierBase, CanonicalTier(""))
	assert.Equal(t, TierBase, CanonicalTier("gold-vip"))
}

func TestLastUserText(t *testing.T) {
	req := &ChatRequest{Messages: []Turn{
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "reply"},
		{Role: RoleUser, Content: "second"},
		{Role: RoleAssistant, Content: "reply"},
	}}
	assert.Equal(t, "second", req.LastUserText())

	empty := &ChatRequest{Messages: []Turn{{Role: RoleAssistant, Content: "hi"}}}
	assert.Equal(t, "", empty.LastUserText())
}

package view

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jeongwonlab/possync/internal/model"
)

func TestAllowed(t *testing.T) {
	assert.True(t, Allowed(model.ViewIdle, model.ViewCart))
	assert.True(t, Allowed(model.ViewCart, model.ViewProcessing))
	assert.True(t, Allowed(model.ViewProcessing, model.ViewSuccess))
	assert.True(t, Allowed(model.ViewSuccess, model.ViewIdle))

	// Self transitions always pass.
	assert.True(t, Allowed(model.ViewCart, model.ViewCart))

	// Jumps outside the expected flow are flagged, not forbidden.
	assert.False(t, Allowed(model.ViewIdle, model.ViewSuccess))
	assert.False(t, Allowed(model.ViewSuccess, model.ViewProcessing))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, model.ViewProcessing, Normalize(model.ViewSignature))
	assert.Equal(t, model.ViewCart, Normalize(model.ViewCart))

	// SIGNATURE follows PROCESSING's transitions.
	assert.True(t, Allowed(model.ViewSignature, model.ViewSuccess))
	assert.True(t, Allowed(model.ViewCart, model.ViewSignature))
}

func TestTerminal(t *testing.T) {
	assert.True(t, Terminal(model.ViewSuccess))
	assert.True(t, Terminal(model.ViewError))
	assert.False(t, Terminal(model.ViewProcessing))
	assert.False(t, Terminal(model.ViewIdle))
}

package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionTransitions(t *testing.T) {
	s := NewSession()
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, StateUninitialized, s.State())
	assert.Equal(t, "uninitialized", s.State().String())

	assert.True(t, s.MarkInitialized())
	assert.Equal(t, StateInitialized, s.State())

	// Initialized is terminal.
	assert.False(t, s.MarkInitialized())
	assert.Equal(t, StateInitialized, s.State())
	assert.Equal(t, "initialized", s.State().String())
}

func TestSessionsAreIndependent(t *testing.T) {
	a, b := NewSession(), NewSession()
	assert.NotEqual(t, a.ID, b.ID)

	a.MarkInitialized()
	assert.Equal(t, StateUninitialized, b.State())
}

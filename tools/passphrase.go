// Package tools holds the tools bundled with the server binary.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/shaharia-lab/mcpstdio/mcp"
)

const (
	PassphraseToolName        = "getSecretPassphrase"
	PassphraseToolDescription = "What's the password?"
)

var passphraseSchema = json.RawMessage(`{
	"type": "object",
	"properties": {},
	"additionalProperties": false,
	"required": []
}`)

var states = []string{
	"New England", "Louisiana", "Texas", "California", "Michigan",
	"Wisconsin", "Maine", "Florida", "Washington", "Oregon",
	"New Mexico", "Kentucky", "Tennessee", "Minnesota", "Illinois",
}

var soups = []string{
	"Clam Chowder", "Gumbo", "Chili", "Cioppino", "Cherry Soup",
	"Beer Cheese Soup", "Lobster Stew", "Conch Chowder", "Salmon Chowder", "Marionberry Soup",
	"Green Chile Stew", "Burgoo", "Hot Chicken Soup", "Wild Rice Soup", "Corn Chowder",
}

// Passphrase picks a regional soup name. Handler is safe for concurrent use.
type Passphrase struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPassphrase seeds from the clock.
func NewPassphrase() *Passphrase {
	return NewPassphraseWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewPassphraseWithSource uses src for every draw.
func NewPassphraseWithSource(src rand.Source) *Passphrase {
	return &Passphrase{rng: rand.New(src)}
}

// Handler ignores its arguments and returns "<State> <Soup>".
func (p *Passphrase) Handler(ctx context.Context, arguments json.RawMessage) (string, error) {
	p.mu.Lock()
	state := states[p.rng.Intn(len(states))]
	soup := soups[p.rng.Intn(len(soups))]
	p.mu.Unlock()

	return fmt.Sprintf("%s %s", state, soup), nil
}

// Register adds getSecretPassphrase to registry.
func Register(registry *mcp.ToolRegistry, p *Passphrase) error {
	if p == nil {
		p = NewPassphrase()
	}
	return registry.Register(PassphraseToolName, PassphraseToolDescription, passphraseSchema, p.Handler)
}

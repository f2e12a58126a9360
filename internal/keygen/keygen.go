// Package keygen produces human-typeable activation keys.
package keygen

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
)

const (
	// DefaultPrefix is the product prefix baked into every key
	DefaultPrefix = "CVITE"

	segmentLength = 5
	segmentCount  = 3

	alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// KeyPattern matches PREFIX-AAAAA-BBBBB-CCCCC with base-36 uppercase segments
var KeyPattern = regexp.MustCompile(`^[A-Z0-9]+(-[A-Z0-9]{5}){3}$`)

// Generator produces activation keys with a fixed prefix. Keys carry about
// 77 bits of entropy across the three segments; uniqueness is enforced by the
// store's unique constraint, not here.
type Generator struct {
	prefix string
}

// New creates a key generator. An empty prefix falls back to DefaultPrefix.
func New(prefix string) *Generator {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Generator{prefix: prefix}
}

// Generate returns a fresh key of the form PREFIX-AAAAA-BBBBB-CCCCC
func (g *Generator) Generate() string {
	segments := make([]string, 0, segmentCount+1)
	segments = append(segments, g.prefix)
	for i := 0; i < segmentCount; i++ {
		segments = append(segments, randomSegment())
	}
	return strings.Join(segments, "-")
}

// Normalize canonicalizes a raw key as entered by a user: trimmed and upper-cased
func Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

func randomSegment() string {
	b := make([]byte, segmentLength)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(b)
}

// Prefix returns the generator's key prefix
func (g *Generator) Prefix() string {
	return g.prefix
}

func (g *Generator) String() string {
	return fmt.Sprintf("keygen(prefix=%s)", g.prefix)
}

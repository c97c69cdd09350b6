// Package idgen generates identifiers for dialog sessions and rolls
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator generates unique identifiers
type Generator interface {
	Generate() string
}

// UUIDGenerator issues "<prefix>_<uuid>" ids. The UUIDs are version 7, so ids
// from one generator sort by creation time.
type UUIDGenerator struct {
	prefix string
}

// NewUUID creates a UUID generator; a blank prefix yields bare UUIDs
func NewUUID(prefix string) *UUIDGenerator {
	return &UUIDGenerator{prefix: prefix}
}

// Generate creates a new id
func (g *UUIDGenerator) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		// only fails when the random source does
		id = uuid.New()
	}
	return join(g.prefix, id.String())
}

// SequentialGenerator issues prefix_1, prefix_2, ... for tests
type SequentialGenerator struct {
	prefix  string
	counter atomic.Uint64
}

// NewSequential creates a sequential generator
func NewSequential(prefix string) *SequentialGenerator {
	return &SequentialGenerator{prefix: prefix}
}

// Generate returns the next id
func (g *SequentialGenerator) Generate() string {
	return join(g.prefix, strconv.FormatUint(g.counter.Add(1), 10))
}

func join(prefix, id string) string {
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

package fragment

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// Minter hands out definition ids that are unique within one evaluation
// pass. Ids are prefix-counter-salt; the salt is drawn once per minter so ids
// from different passes never collide either.
type Minter struct {
	salt    string
	counter atomic.Uint64
}

// NewMinter returns a minter with a fresh random salt.
func NewMinter() *Minter {
	s := strings.ReplaceAll(uuid.NewString(), "-", "")
	return &Minter{salt: s[:6]}
}

// NewMinterWithSalt returns a minter with a fixed salt.
func NewMinterWithSalt(salt string) *Minter {
	return &Minter{salt: salt}
}

// Next returns a new id starting with prefix.
func (m *Minter) Next(prefix string) string {
	n := m.counter.Add(1)
	return fmt.Sprintf("%s-%d-%s", prefix, n, m.salt)
}

// Salt returns the salt of the minter.
func (m *Minter) Salt() string { return m.salt }

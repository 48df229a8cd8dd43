// Package shortcode generates and resolves short public aliases for file
// identifiers.
package shortcode

import (
	"context"
	"encoding/binary"
	"errors"
	"math/rand/v2"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"dropapi/internal/failover"
	"dropapi/internal/repository"
)

// Length is the fixed alias length.
const Length = 8

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Generate produces an 8-character base36 alias by hashing a fresh UUID, the
// current nanosecond timestamp, the process id, and a per-call random value.
// Uniqueness is probabilistic: no collision check is made against existing
// aliases, and a colliding insert overwrites the prior mapping.
func Generate() string {
	var buf [8]byte

	d := xxhash.New()
	id := uuid.New()
	d.Write(id[:])

	binary.LittleEndian.PutUint64(buf[:], uint64(time.Now().UnixNano()))
	d.Write(buf[:])

	binary.LittleEndian.PutUint64(buf[:], uint64(os.Getpid()))
	d.Write(buf[:])

	binary.LittleEndian.PutUint64(buf[:], rand.Uint64())
	d.Write(buf[:])

	n := d.Sum64()
	out := make([]byte, Length)
	for i := 0; i < Length; i++ {
		out[i] = alphabet[n%36]
		n /= 36
	}
	return string(out)
}

// Resolver turns an identifier-or-alias string into a file identifier.
type Resolver struct {
	aliases *failover.Coordinator[repository.AliasRepository]
}

// NewResolver creates a resolver over the alias coordinator.
func NewResolver(aliases *failover.Coordinator[repository.AliasRepository]) *Resolver {
	return &Resolver{aliases: aliases}
}

// Resolve parses input as a UUID first; failing that it treats input as an
// alias and looks up the mapped file id. Returns repository.ErrNotFound when
// neither succeeds.
func (r *Resolver) Resolve(ctx context.Context, input string) (string, error) {
	if id, err := uuid.Parse(input); err == nil {
		return id.String(), nil
	}

	var fileID string
	err := r.aliases.Do(ctx, "resolve", func(b repository.AliasRepository) error {
		id, err := b.Resolve(ctx, input)
		if err != nil {
			return err
		}
		fileID = id
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", repository.ErrNotFound
		}
		return "", err
	}
	return fileID, nil
}

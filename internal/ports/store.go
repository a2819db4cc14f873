package ports

import "context"

// Store persists opaque document values under relative, slash-separated keys.
// Implementations must write atomically (e.g., write to temp file, then
// rename) so that readers never observe a torn value.
type Store interface {
	// Save persists value under key, creating parent directories as needed.
	// An existing value is replaced atomically; concurrent saves to the same
	// key are serialized.
	Save(ctx context.Context, key string, value []byte) error

	// Load retrieves the value stored under key.
	// Returns domain.ErrNotFound when the key has no stored value.
	Load(ctx context.Context, key string) ([]byte, error)

	// List returns every stored key beginning with prefix, in lexicographic
	// order. An empty prefix lists the whole store.
	List(ctx context.Context, prefix string) ([]string, error)

	// Root returns the directory the store persists into.
	Root() string
}

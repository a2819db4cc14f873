package domain

import (
	"fmt"
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CleanDocKey validates and canonicalizes a document key. Keys are relative,
// slash-separated paths. They are normalized to NFC so the same name produced
// on different platforms resolves to one document. Dot-prefixed segments and
// the ".tmp" suffix are reserved for storage internals.
//
// Returns ErrBadPath for keys that are empty, absolute, or escape the root.
func CleanDocKey(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: empty key", ErrBadPath)
	}
	if strings.Contains(key, "\\") {
		return "", fmt.Errorf("%w: %q", ErrBadPath, key)
	}

	p := path.Clean(norm.NFC.String(key))
	if p == "." || p == ".." || path.IsAbs(p) || strings.HasPrefix(p, "../") {
		return "", fmt.Errorf("%w: %q", ErrBadPath, key)
	}
	for _, seg := range strings.Split(p, "/") {
		if strings.HasPrefix(seg, ".") || strings.HasSuffix(seg, ".tmp") {
			return "", fmt.Errorf("%w: %q", ErrBadPath, key)
		}
	}
	return p, nil
}

// Package cachekey derives the per-request cache directory.
//
// The key is a SHA-256 over the source root, the target root, the request path
// and the request content. Every field is length-prefixed so that moving bytes
// between fields cannot produce the same digest.
package cachekey

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/aretw0/zres/pkg/request"
)

// Keyer maps requests to cache directories under Root.
type Keyer struct {
	Root string
}

// New creates a Keyer. An empty root selects DefaultRoot.
func New(root string) *Keyer {
	if root == "" {
		root = DefaultRoot()
	}
	return &Keyer{Root: root}
}

// DefaultRoot is the user cache dir, or the temp dir if there is none.
func DefaultRoot() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "zres")
	}
	return filepath.Join(os.TempDir(), "zres-cache")
}

// Hash returns the hex digest of the four key fields.
func Hash(sourceRoot, targetRoot, requestPath string, content []byte) string {
	h := sha256.New()
	var n [8]byte
	for _, field := range [][]byte{
		[]byte(sourceRoot),
		[]byte(targetRoot),
		[]byte(requestPath),
		content,
	} {
		binary.BigEndian.PutUint64(n[:], uint64(len(field)))
		h.Write(n[:])
		h.Write(field)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// KeyFor returns the cache dir of a request. The directory name starts with
// the request's tool so a cache root stays browsable.
func (k *Keyer) KeyFor(sourceRoot, targetRoot, requestPath string, content []byte) string {
	sum := Hash(sourceRoot, targetRoot, requestPath, content)
	name := sum
	if _, tool, ok := request.Parse(filepath.Base(requestPath)); ok {
		name = tool + "-" + sum
	}
	return filepath.Join(k.Root, name)
}

// Ensure creates dir if needed. It never removes anything.
func Ensure(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

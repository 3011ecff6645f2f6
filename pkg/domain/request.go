package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// RequestSuffix is the marker that starts every request suffix ("name.zr-tool").
const RequestSuffix = ".zr-"

// Origin tells which tree a request file was discovered in.
type Origin int

const (
	// OriginSource marks requests authored in the source tree.
	OriginSource Origin = iota
	// OriginTarget marks requests generated by tools inside the target tree.
	OriginTarget
)

func (o Origin) String() string {
	switch o {
	case OriginSource:
		return "source"
	case OriginTarget:
		return "target"
	}
	return "unknown"
}

// Request is a pending tool invocation encoded in a file name.
type Request struct {
	// Path is the absolute path of the request file.
	Path string `json:"path"`
	// Dir is the parent directory of Path.
	Dir string `json:"dir"`
	// Tool is the name taken from the rightmost suffix.
	Tool string `json:"tool"`
	// Content is the raw request file content.
	Content []byte `json:"-"`
	// Target is the implied target path: the request path without its
	// rightmost suffix, mapped into the target tree.
	Target string `json:"target"`
	Origin Origin `json:"origin"`
}

// Digest returns the hex SHA-256 of the request content.
func (r Request) Digest() string {
	sum := sha256.Sum256(r.Content)
	return hex.EncodeToString(sum[:])
}

func (r Request) String() string {
	return r.Path
}

// Package request recognizes request files and computes their implied targets.
//
// A request file name ends in one or more ".zr-<tool>" suffixes. Each call to
// Parse strips only the rightmost suffix, so "x.zr-a.zr-b" is first a request
// for tool "b" with target "x.zr-a", which in turn becomes a request for "a".
package request

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/zres/pkg/domain"
)

// ValidTool reports whether name is a legal tool identifier (ASCII
// alphanumerics and hyphens, not empty).
func ValidTool(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
		default:
			return false
		}
	}
	return true
}

// Suffix returns the request suffix for tool, e.g. ".zr-copy".
func Suffix(tool string) string {
	return domain.RequestSuffix + tool
}

// Parse splits the rightmost request suffix off path. base keeps the
// directory part of path. ok is false if path is not a request.
func Parse(path string) (base, tool string, ok bool) {
	dir, name := filepath.Split(path)
	i := strings.LastIndex(name, domain.RequestSuffix)
	if i < 0 {
		return "", "", false
	}
	tool = name[i+len(domain.RequestSuffix):]
	if !ValidTool(tool) {
		return "", "", false
	}
	return filepath.Join(dir, name[:i]), tool, true
}

// IsRequest reports whether the file name carries a request suffix.
func IsRequest(name string) bool {
	_, _, ok := Parse(filepath.Base(name))
	return ok
}

// TargetFor maps a request path to its implied target path. Requests under
// sourceRoot are mirrored under targetRoot, requests under targetRoot keep
// their location.
func TargetFor(path, sourceRoot, targetRoot string) (string, domain.Origin, error) {
	base, _, ok := Parse(path)
	if !ok {
		return "", 0, fmt.Errorf("not a request: %s", path)
	}
	if _, ok := Within(targetRoot, path); ok {
		return base, domain.OriginTarget, nil
	}
	rel, ok := Within(sourceRoot, base)
	if !ok {
		return "", 0, fmt.Errorf("request %s is outside of %s and %s", path, sourceRoot, targetRoot)
	}
	return filepath.Join(targetRoot, rel), domain.OriginSource, nil
}

// New reads the request file at path and builds the request.
func New(path, sourceRoot, targetRoot string) (domain.Request, error) {
	_, tool, ok := Parse(path)
	if !ok {
		return domain.Request{}, fmt.Errorf("not a request: %s", path)
	}
	target, origin, err := TargetFor(path, sourceRoot, targetRoot)
	if err != nil {
		return domain.Request{}, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.Request{}, err
	}
	return domain.Request{
		Path:    path,
		Dir:     filepath.Dir(path),
		Tool:    tool,
		Content: content,
		Target:  target,
		Origin:  origin,
	}, nil
}

// Within returns path relative to root if path is root or below it.
func Within(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

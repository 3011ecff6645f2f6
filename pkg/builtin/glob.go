package builtin

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/zres/internal/fsutil"
	"github.com/aretw0/zres/pkg/domain"
	"github.com/aretw0/zres/pkg/registry"
	"github.com/aretw0/zres/pkg/request"
)

const globHelp = `# glob

Copies every file matching the request patterns into the target directory,
keeping paths relative to the request directory.

Each line is a doublestar pattern. Lines starting with "!" exclude matches,
lines starting with "#" are comments. Request files never match.

    # .zr-glob
    icons/**/*.svg
    !icons/draft/**

Matches become "copy" requests in the target, resolved in the next pass.
`

// Glob returns the "glob" builtin.
func Glob() registry.Tool {
	return registry.Tool{Name: "glob", Help: globHelp, Run: runGlob}
}

func runGlob(_ context.Context, call registry.Call) error {
	content, err := readRequest(call)
	if err != nil {
		return err
	}
	target, err := targetOf(call)
	if err != nil {
		return err
	}
	dir := call.Getenv(domain.EnvRequestDD)

	var include, exclude []string
	for _, l := range lines(content) {
		if p, ok := strings.CutPrefix(l, "!"); ok {
			exclude = append(exclude, p)
		} else {
			include = append(include, l)
		}
	}
	for _, p := range append(include, exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("glob: invalid pattern %q", p)
		}
	}

	matches, err := Match(os.DirFS(dir), include, exclude)
	if err != nil {
		return fmt.Errorf("glob: %w", err)
	}
	for _, rel := range matches {
		src := filepath.Join(dir, filepath.FromSlash(rel))
		req := filepath.Join(target, filepath.FromSlash(rel)) + request.Suffix("copy")
		if err := fsutil.WriteFile(req, []byte(src+"\n")); err != nil {
			return fmt.Errorf("glob: %w", err)
		}
	}
	return nil
}

// Match returns the sorted slash-separated paths of the files in fsys that
// match one of include and none of exclude. Request files are left out.
func Match(fsys fs.FS, include, exclude []string) ([]string, error) {
	seen := make(map[string]bool)
	for _, p := range include {
		found, err := doublestar.Glob(fsys, p, doublestar.WithFilesOnly())
		if err != nil {
			return nil, err
		}
	next:
		for _, m := range found {
			if seen[m] || request.IsRequest(m) {
				continue
			}
			for _, x := range exclude {
				if ok, _ := doublestar.Match(x, m); ok {
					continue next
				}
			}
			seen[m] = true
		}
	}
	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

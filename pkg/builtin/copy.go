package builtin

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/aretw0/zres/internal/fsutil"
	"github.com/aretw0/zres/pkg/domain"
	"github.com/aretw0/zres/pkg/registry"
)

const copyHelp = `# copy

Copies a file or directory to the request target.

The first line of the request that is not blank or a "#" comment is the
source path. Relative paths are resolved against the request directory.

    # logo.png.zr-copy
    ../../assets/logo.png
`

// Copy returns the "copy" builtin.
func Copy() registry.Tool {
	return registry.Tool{Name: "copy", Help: copyHelp, Run: runCopy}
}

func runCopy(_ context.Context, call registry.Call) error {
	content, err := readRequest(call)
	if err != nil {
		return err
	}
	target, err := targetOf(call)
	if err != nil {
		return err
	}
	ls := lines(content)
	if len(ls) == 0 {
		return fmt.Errorf("copy: request names no source")
	}
	src := ls[0]
	if !filepath.IsAbs(src) {
		src = filepath.Join(call.Getenv(domain.EnvRequestDD), src)
	}
	if err := fsutil.Copy(target, src); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	return nil
}

package builtin

import (
	"context"
	"os/exec"
	"strings"

	"github.com/aretw0/zres/pkg/adapters/process"
	"github.com/aretw0/zres/pkg/registry"
)

const shHelp = `# sh

Runs the request content as a "sh" script in the workspace directory.

The script gets the tool environment and may print protocol directives, for
example "zres::warning=..." or "zres::on-final=...".

    # version.txt.zr-sh
    git describe --tags > "$ZR_TARGET"
`

// Shell returns the "sh" builtin.
func Shell() registry.Tool {
	return registry.Tool{Name: "sh", Help: shHelp, Run: runShell}
}

func runShell(ctx context.Context, call registry.Call) error {
	content, err := readRequest(call)
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, "sh", "-s")
	cmd.Dir = call.Dir
	cmd.Stdin = strings.NewReader(string(content))
	cmd.Stdout = call.Stdout
	cmd.Stderr = call.Stderr
	cmd.Env = process.Environ(call.Env)
	return cmd.Run()
}

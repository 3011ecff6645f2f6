package builtin

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/zres/internal/fsutil"
	"github.com/aretw0/zres/pkg/registry"
)

const rpHelp = `# rp

Writes the request content to the target with variables replaced.

- "${NAME}" is replaced by the variable NAME. An unset variable fails the tool.
- "${NAME:-default}" uses default when NAME is unset or empty.
- "$${" writes a literal "${".

Variables come from the tool environment, so the ZR_* variables and the
workspace metadata (ZR_APP, ZR_VERSION, ...) are available.

    # about.txt.zr-rp
    ${ZR_APP} ${ZR_VERSION:-dev}
`

// Replace returns the "rp" builtin.
func Replace() registry.Tool {
	return registry.Tool{Name: "rp", Help: rpHelp, Run: runReplace}
}

func runReplace(_ context.Context, call registry.Call) error {
	content, err := readRequest(call)
	if err != nil {
		return err
	}
	target, err := targetOf(call)
	if err != nil {
		return err
	}
	out, err := Expand(string(content), func(name string) (string, bool) {
		if v, ok := call.Env[name]; ok {
			return v, true
		}
		return os.LookupEnv(name)
	})
	if err != nil {
		return fmt.Errorf("rp: %w", err)
	}
	return fsutil.WriteFile(target, []byte(out))
}

// Expand replaces the "${NAME}" and "${NAME:-default}" references in s.
func Expand(s string, lookup func(string) (string, bool)) (string, error) {
	var sb strings.Builder
	for i := 0; i < len(s); {
		switch {
		case strings.HasPrefix(s[i:], "$${"):
			sb.WriteString("${")
			i += 3
		case strings.HasPrefix(s[i:], "${"):
			end := strings.IndexByte(s[i+2:], '}')
			if end < 0 {
				return "", fmt.Errorf("unterminated variable at offset %d", i)
			}
			expr := s[i+2 : i+2+end]
			name, def, hasDef := strings.Cut(expr, ":-")
			if !validVar(name) {
				return "", fmt.Errorf("invalid variable name %q", name)
			}
			v, ok := lookup(name)
			switch {
			case hasDef && v == "":
				v = def
			case !ok:
				return "", fmt.Errorf("variable %s is not set", name)
			}
			sb.WriteString(v)
			i += 2 + end + 1
		default:
			sb.WriteByte(s[i])
			i++
		}
	}
	return sb.String(), nil
}

func validVar(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c != '_' && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

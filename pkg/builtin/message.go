package builtin

import (
	"context"
	"errors"
	"strings"

	"github.com/aretw0/zres/pkg/protocol"
	"github.com/aretw0/zres/pkg/registry"
)

// Warn returns the "warn" builtin. It reports the request content as a
// warning and produces nothing.
func Warn() registry.Tool {
	return registry.Tool{
		Name: "warn",
		Help: "# warn\n\nReports the request content as a build warning.\n",
		Run: func(_ context.Context, call registry.Call) error {
			content, err := readRequest(call)
			if err != nil {
				return err
			}
			return protocol.Warn(call.Stdout, strings.TrimSpace(string(content)))
		},
	}
}

// Fail returns the "fail" builtin. It writes the request content to stderr
// and fails the build.
func Fail() registry.Tool {
	return registry.Tool{
		Name: "fail",
		Help: "# fail\n\nFails the build with the request content as the error message.\n",
		Run: func(_ context.Context, call registry.Call) error {
			content, err := readRequest(call)
			if err != nil {
				return err
			}
			if _, err := call.Stderr.Write(content); err != nil {
				return err
			}
			return errors.New("fail requested")
		},
	}
}

/*
Package zres is a declarative, fixpoint resource build pipeline.

A source tree of resources is copied into a target tree. Files whose name ends
in ".zr-<tool>" are requests: instead of being copied they are handed to the
named tool, which writes the target (the request path without its suffix) and
may generate further requests. The engine walks both trees again and again
until a walk finds nothing new, then runs the tools that asked to be called
once more at the very end.

# Tools

A tool name is resolved in four tiers, first match wins:

  - a dedicated Go package "<tools>/zres-<tool>", run with "go run"
  - an entry point "<tools>/zres/cmd/<tool>" of a shared tools module
  - a builtin (copy, glob, rp, sh, warn, fail)
  - an executable "zres-<tool>" next to the zres binary

Tools get their inputs from ZR_* environment variables and answer on stdout
with directive lines: "zres::delegate" passes the request to the next tier,
"zres::warning=<text>" reports a warning, "zres::on-final=<args>" asks for a
final pass call. The pkg/protocol package writes these lines for Go tools.

# Usage

	p, err := zres.New("res", "target/res", zres.WithToolsDir("tools"))
	if err != nil {
		log.Fatal(err)
	}
	report, err := p.Build(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(report.Passes, "passes")
*/
package zres

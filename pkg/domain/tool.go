package domain

// Tier is a position in the tool search order. Lower tiers are tried first.
type Tier int

const (
	// TierDedicated is a dedicated Go package "<tools>/zres-<tool>".
	TierDedicated Tier = iota
	// TierMultiTool is an entry point "<tools>/zres/cmd/<tool>" of the shared tools package.
	TierMultiTool
	// TierBuiltin is a tool compiled into the driver.
	TierBuiltin
	// TierSibling is an executable "zres-<tool>" installed next to the driver.
	TierSibling
)

func (t Tier) String() string {
	switch t {
	case TierDedicated:
		return "dedicated"
	case TierMultiTool:
		return "multi-tool"
	case TierBuiltin:
		return "builtin"
	case TierSibling:
		return "sibling"
	}
	return "unknown"
}

// ToolKind tells the invoker how to execute a resolved tool.
type ToolKind int

const (
	// KindGoPackage is a Go main package, executed with "go run <dir>".
	KindGoPackage ToolKind = iota
	// KindExecutable is a ready-to-run executable file.
	KindExecutable
	// KindBuiltin is executed in process through the builtin registry.
	KindBuiltin
)

func (k ToolKind) String() string {
	switch k {
	case KindGoPackage:
		return "go-package"
	case KindExecutable:
		return "executable"
	case KindBuiltin:
		return "builtin"
	}
	return "unknown"
}

// ToolTarget is a resolved tool.
type ToolTarget struct {
	Name string   `json:"name"`
	Tier Tier     `json:"tier"`
	Kind ToolKind `json:"kind"`
	// Path is the package dir or executable. Empty for builtins.
	Path string `json:"path,omitempty"`
}

// ToolInfo describes an available tool for introspection.
type ToolInfo struct {
	ToolTarget
	// Shadowed is set when an earlier tier provides a tool with the same name.
	Shadowed bool `json:"shadowed,omitempty"`
}

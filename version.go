package zres

import (
	_ "embed"
)

// Version is the zres release, read from the VERSION file.
//
//go:embed VERSION
var Version string

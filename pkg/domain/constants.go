package domain

// Environment variables set for every tool invocation.
const (
	EnvSourceDir    = "ZR_SOURCE_DIR"
	EnvTargetDir    = "ZR_TARGET_DIR"
	EnvCacheDir     = "ZR_CACHE_DIR"
	EnvWorkspaceDir = "ZR_WORKSPACE_DIR"
	EnvRequest      = "ZR_REQUEST"
	EnvRequestDD    = "ZR_REQUEST_DD"
	EnvTarget       = "ZR_TARGET"
	EnvTargetDD     = "ZR_TARGET_DD"
	// EnvFinal is only set during the final pass.
	EnvFinal = "ZR_FINAL"
	// EnvHelp is only set when the tool is asked to describe itself.
	EnvHelp = "ZR_HELP"
)

// Workspace metadata variables.
const (
	EnvApp         = "ZR_APP"
	EnvOrg         = "ZR_ORG"
	EnvVersion     = "ZR_VERSION"
	EnvDescription = "ZR_DESCRIPTION"
	EnvHomepage    = "ZR_HOMEPAGE"
	EnvPkgName     = "ZR_PKG_NAME"
	EnvPkgAuthors  = "ZR_PKG_AUTHORS"
	EnvCrateName   = "ZR_CRATE_NAME"
	EnvQualifier   = "ZR_QUALIFIER"
)

// MetadataKeys maps the metadata keys used in config files to their env variables.
var MetadataKeys = map[string]string{
	"app":         EnvApp,
	"org":         EnvOrg,
	"version":     EnvVersion,
	"description": EnvDescription,
	"homepage":    EnvHomepage,
	"pkg_name":    EnvPkgName,
	"pkg_authors": EnvPkgAuthors,
	"crate_name":  EnvCrateName,
	"qualifier":   EnvQualifier,
}

// IncompleteMarker is written at the target root while a run is in progress.
// It is only removed when the run is done.
const IncompleteMarker = ".zres-incomplete"

// DefaultPassLimit bounds the number of passes of a run.
const DefaultPassLimit = 32

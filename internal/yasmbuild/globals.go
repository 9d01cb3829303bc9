package yasmbuild

import (
	"github.com/gookit/color"
)

// Pinned upstream release. Bump all three together when moving to a new
// yasm tag or MSVC toolchain.
const (
	yasmVersion = "1.3.0"
	yasmRepoURL = "https://github.com/yasm/yasm"
	msvcBuild   = "14.28"
	vsVersion   = "2019"
	packageName = "yasm"
)

// Global variables
var (
	Debug   bool
	version = "dev" // overridden at build time
)

// color helpers
var (
	colInfo    = color.Info // style provided by gookit/color
	colWarn    = color.Warn
	colError   = color.Error
	colSuccess = color.HEX("#1976D2")
	colArrow   = color.HEX("#FFEB3B")
)

package webui

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
)

//go:embed page.html static
var files embed.FS

// Files returns the page and static assets. Debug builds read them from the
// working tree so they can be edited without rebuilding.
func Files(build string) fs.FS {
	if build == "release" {
		return files
	}
	if build == "debug" {
		return os.DirFS("src/handler/webui")
	}
	panic(fmt.Errorf("invalid build: %q", build))
}

//go:build dev

package main

import (
	"io/fs"
	"os"
)

// getAssetsFS reads static files from disk in dev mode so they can be edited
// without rebuilding.
func getAssetsFS() (fs.FS, error) {
	return os.DirFS("static"), nil
}

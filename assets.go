//go:build !dev

package main

import (
	"embed"
	"io/fs"
)

//go:embed static
var embeddedStatic embed.FS

func getAssetsFS() (fs.FS, error) {
	return fs.Sub(embeddedStatic, "static")
}

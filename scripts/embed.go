// Package scripts embeds the bundled Risor rule scripts.
package scripts

import (
	"embed"
	"io/fs"
)

//go:embed rules
var FS embed.FS

// Rules returns the rule scripts rooted at rules/, laid out as
// <language>/<name>.risor.
func Rules() fs.FS {
	sub, err := fs.Sub(FS, "rules")
	if err != nil {
		panic(err)
	}
	return sub
}

// Package public embeds the console stylesheet and other static assets.
package public

import (
	"embed"
	"io/fs"
)

//go:embed static
var assets embed.FS

// StaticFS returns the assets rooted at static/, as served under
// /public/static/.
func StaticFS() (fs.FS, error) {
	return fs.Sub(assets, "static")
}

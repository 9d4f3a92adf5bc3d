// Package source loads pages for export. A page is a parsed document
// together with style sheets in effect for it, in the order browser would
// apply them. Pages come either from saved copies on disk (plain directory or
// zip archive) or from a live browser.
package source

import (
	"context"
	"path"
	"strings"

	"canvasx/css"
	"canvasx/dom"
)

// Page is a loaded document ready for export.
type Page struct {
	Name   string       // page path within its file system or URL
	Root   *dom.Element // document node
	Styles css.Source
	// Files lists local files page was assembled from, page itself first.
	// Empty for live pages.
	Files []string
}

// Loader produces pages by name.
type Loader interface {
	Load(ctx context.Context, name string) (*Page, error)
}

// IsPage reports whether file looks like saved html page. Files inside
// "<page>_files" directories created by browsers when saving complete pages
// are resources (frames, widgets) rather than pages and are not reported.
func IsPage(name string) bool {
	name = strings.ReplaceAll(name, `\`, "/")
	switch strings.ToLower(path.Ext(name)) {
	case ".html", ".htm", ".xhtml":
	default:
		return false
	}
	dir := path.Dir(name)
	for _, part := range strings.Split(dir, "/") {
		if strings.HasSuffix(part, "_files") {
			return false
		}
	}
	return true
}

// IsURL reports whether source should be loaded by a browser.
func IsURL(src string) bool {
	lower := strings.ToLower(src)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

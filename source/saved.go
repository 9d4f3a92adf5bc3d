package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"canvasx/css"
	"canvasx/dom"
)

var errNotLocal = errors.New("not a local file")

var sheetElements = func() *dom.Selector {
	s, err := dom.Compile(`style, link[rel~="stylesheet" i]`)
	if err != nil {
		panic(err)
	}
	return s
}()

// Saved loads pages saved to disk. Style sheets referenced by a page are
// read from the same file system, anything else (remote urls, files outside
// of file system) is reported as inaccessible sheet.
type Saved struct {
	fsys          fs.FS
	followImports bool
	parser        *css.Parser
	log           *zap.Logger
}

// NewSaved returns loader reading pages from fsys, which could be directory
// (os.DirFS) or opened archive.
func NewSaved(fsys fs.FS, followImports bool, log *zap.Logger) *Saved {
	if log == nil {
		log = zap.NewNop()
	}
	return &Saved{
		fsys:          fsys,
		followImports: followImports,
		parser:        css.NewParser(log),
		log:           log.Named("saved"),
	}
}

// Load reads page with slash separated name. Page encoding is detected from
// BOM or meta tags, everything is converted to UTF-8.
func (s *Saved) Load(ctx context.Context, name string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("unable to open page: %w", err)
	}
	defer f.Close()

	r, err := charset.NewReader(f, "text/html")
	if err != nil {
		return nil, fmt.Errorf("unable to detect page encoding: %w", err)
	}
	root, err := dom.Parse(r)
	if err != nil {
		return nil, err
	}

	c := &collector{Saved: s, visited: make(map[string]bool)}
	for _, el := range root.QueryAll(sheetElements) {
		switch el.Tag() {
		case "style":
			c.inline++
			c.addInline(el.Text(), fmt.Sprintf("inline #%d", c.inline), name)
		case "link":
			if _, disabled := el.Attr("disabled"); disabled || isAlternate(el) {
				continue
			}
			href, _ := el.Attr("href")
			if strings.TrimSpace(href) == "" {
				s.log.Debug("Style sheet link without href, ignoring", zap.String("page", name))
				continue
			}
			c.addLink(href, name)
		}
	}

	s.log.Debug("Page loaded", zap.String("page", name), zap.Int("sheets", len(c.src)))
	return &Page{Name: name, Root: root, Styles: c.src, Files: append([]string{name}, c.files...)}, nil
}

// FS returns file system pages are read from.
func (s *Saved) FS() fs.FS {
	return s.fsys
}

// isAlternate reports alternate style sheet link, browsers do not apply those
// until user picks them.
func isAlternate(el *dom.Element) bool {
	for _, rel := range el.AttrTokens("rel") {
		if strings.EqualFold(rel, "alternate") {
			return true
		}
	}
	return false
}

// collector accumulates style sheets of a single page.
type collector struct {
	*Saved
	inline  int
	visited map[string]bool
	files   []string
	src     css.Source
}

func (c *collector) addInline(text, name, base string) {
	sheet := c.parser.Parse([]byte(text), name)
	c.addImports(sheet, base)
	c.add(sheet)
}

func (c *collector) addLink(href, base string) {
	p, err := resolve(base, href)
	if err != nil {
		c.src = append(c.src, &css.Inaccessible{Href: href, Cause: err})
		return
	}
	if c.visited[p] {
		c.log.Debug("Style sheet already loaded, skipping", zap.String("sheet", p))
		return
	}
	c.visited[p] = true

	data, err := fs.ReadFile(c.fsys, p)
	if err != nil {
		c.src = append(c.src, &css.Inaccessible{Href: href, Cause: err})
		return
	}
	c.files = append(c.files, p)
	sheet := c.parser.Parse(data, href)
	c.addImports(sheet, p)
	c.add(sheet)
}

// addImports loads sheets imported by sheet. Imported rules precede rules of
// importing sheet.
func (c *collector) addImports(sheet *css.Stylesheet, base string) {
	if !c.followImports {
		return
	}
	for _, imp := range sheet.Imports() {
		c.addLink(imp, base)
	}
}

func (c *collector) add(sheet *css.Stylesheet) {
	for _, w := range sheet.Warnings {
		c.log.Debug("Style sheet problem", zap.String("sheet", sheet.Name()), zap.String("warning", w))
	}
	c.src = append(c.src, sheet)
}

// resolve returns path of href referenced from file base within file system.
func resolve(base, href string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	if u.Scheme != "" || u.Host != "" {
		return "", errNotLocal
	}
	if u.Path == "" {
		return "", fmt.Errorf("empty path: %w", errNotLocal)
	}

	var p string
	if strings.HasPrefix(u.Path, "/") {
		p = path.Clean(strings.TrimPrefix(u.Path, "/"))
	} else {
		p = path.Join(path.Dir(base), u.Path)
	}
	if !fs.ValidPath(p) {
		return "", fmt.Errorf("%q is outside of page location: %w", href, errNotLocal)
	}
	return p, nil
}

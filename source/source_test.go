package source

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"canvasx/archive"
	"canvasx/css"
	"canvasx/dom"
)

const board = `<!DOCTYPE html>
<html><head>
<link rel="stylesheet" href="board_files/site.css">
<style>.inline-a { color: red; }</style>
<link rel="stylesheet" href="https://cdn.example.com/remote.css">
<link rel="stylesheet" href="board_files/missing.css">
<link rel="stylesheet" href="board_files/off.css" disabled>
<link rel="icon" href="favicon.ico">
</head>
<body><div class="canvas-container"><div class="inline-a">x</div></div>
<style>.inline-b { color: blue; }</style>
</body></html>`

func names(src css.Source) []string {
	out := make([]string, 0, len(src))
	for _, s := range src {
		out = append(out, s.Name())
	}
	return out
}

func equal(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSaved_Load(t *testing.T) {
	fsys := fstest.MapFS{
		"board.html":            {Data: []byte(board)},
		"board_files/site.css":  {Data: []byte(".site { margin: 0; }")},
		"board_files/off.css":   {Data: []byte(".off { margin: 0; }")},
		"board_files/other.css": {Data: []byte(".other { margin: 0; }")},
	}

	page, err := NewSaved(fsys, true, zap.NewNop()).Load(context.Background(), "board.html")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if page.Name != "board.html" {
		t.Errorf("Name = %q", page.Name)
	}
	equal(t, names(page.Styles), []string{
		"board_files/site.css",
		"inline #1",
		"https://cdn.example.com/remote.css",
		"board_files/missing.css",
		"inline #2",
	})

	readable := []bool{true, true, false, false, true}
	for i, sheet := range page.Styles {
		_, err := sheet.Rules()
		if (err == nil) != readable[i] {
			t.Errorf("sheet %s: Rules() error = %v", sheet.Name(), err)
		}
		if err != nil && !errors.Is(err, css.ErrInaccessible) {
			t.Errorf("sheet %s: error does not wrap ErrInaccessible: %v", sheet.Name(), err)
		}
	}

	equal(t, page.Files, []string{"board.html", "board_files/site.css"})

	items, _ := page.Styles[0].Rules()
	if len(items) != 1 || items[0].Rule.Text != ".site { margin: 0; }" {
		t.Errorf("unexpected rules of linked sheet: %+v", items)
	}

	sel, _ := dom.Compile(".inline-a")
	if page.Root.Query(sel) == nil {
		t.Error("document was not parsed")
	}
}

func TestSaved_LinkRel(t *testing.T) {
	fsys := fstest.MapFS{
		"page.html": {Data: []byte(`<html><head>
<link rel="Stylesheet" href="upper.css">
<link rel="alternate stylesheet" href="alt.css" title="Contrast">
<link rel="STYLESHEET  preload" href="mixed.css">
<link rel="stylesheets" href="typo.css">
</head><body></body></html>`)},
		"upper.css": {Data: []byte(".u { color: red; }")},
		"alt.css":   {Data: []byte(".alt { color: black; }")},
		"mixed.css": {Data: []byte(".m { color: blue; }")},
		"typo.css":  {Data: []byte(".t { color: green; }")},
	}

	page, err := NewSaved(fsys, true, nil).Load(context.Background(), "page.html")
	if err != nil {
		t.Fatal(err)
	}
	equal(t, names(page.Styles), []string{"upper.css", "mixed.css"})
}

func TestSaved_Imports(t *testing.T) {
	fsys := fstest.MapFS{
		"p/page.html":          {Data: []byte(`<link rel="stylesheet" href="css/site.css"><style>@import "css/extra.css"; .i { margin: 0; }</style>`)},
		"p/css/site.css":       {Data: []byte(`@import url("base/reset.css"); .site { margin: 0; }`)},
		"p/css/base/reset.css": {Data: []byte(`@import "../site.css"; .reset { margin: 0; }`)},
		"p/css/extra.css":      {Data: []byte(`.extra { margin: 0; }`)},
	}

	t.Run("follow", func(t *testing.T) {
		page, err := NewSaved(fsys, true, nil).Load(context.Background(), "p/page.html")
		if err != nil {
			t.Fatal(err)
		}
		// cycle back to site.css is broken, imported sheets come first
		equal(t, names(page.Styles), []string{"base/reset.css", "css/site.css", "css/extra.css", "inline #1"})
		equal(t, page.Files, []string{"p/page.html", "p/css/site.css", "p/css/base/reset.css", "p/css/extra.css"})
	})

	t.Run("ignore", func(t *testing.T) {
		page, err := NewSaved(fsys, false, nil).Load(context.Background(), "p/page.html")
		if err != nil {
			t.Fatal(err)
		}
		equal(t, names(page.Styles), []string{"css/site.css", "inline #1"})
	})
}

func TestSaved_Charset(t *testing.T) {
	text, err := charmap.Windows1251.NewEncoder().String(`<html><head><meta charset="windows-1251"></head><body><p>Привет</p></body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	fsys := fstest.MapFS{"ru.htm": {Data: []byte(text)}}

	page, err := NewSaved(fsys, true, nil).Load(context.Background(), "ru.htm")
	if err != nil {
		t.Fatal(err)
	}
	sel, _ := dom.Compile("p")
	if got := page.Root.Query(sel).Text(); got != "Привет" {
		t.Errorf("text = %q, want %q", got, "Привет")
	}
}

func TestSaved_Errors(t *testing.T) {
	s := NewSaved(fstest.MapFS{}, true, nil)
	if _, err := s.Load(context.Background(), "absent.html"); err == nil {
		t.Error("expected error for missing page")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Load(ctx, "absent.html"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSaved_Directory(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "page_files"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "page.html"), []byte(`<link rel="stylesheet" href="/page_files/a.css">`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "page_files", "a.css"), []byte(".a { color: red; }"), 0644); err != nil {
		t.Fatal(err)
	}

	page, err := NewSaved(os.DirFS(dir), true, nil).Load(context.Background(), "page.html")
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Styles) != 1 {
		t.Fatalf("expected 1 sheet, got %d", len(page.Styles))
	}
	if _, err := page.Styles[0].Rules(); err != nil {
		t.Errorf("root relative sheet was not read: %v", err)
	}
}

func TestSaved_Archive(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "pages.zip")
	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(f)
	for name, content := range map[string]string{
		"saved/board.html":        `<link rel="stylesheet" href="board_files/s.css">`,
		"saved/board_files/s.css": `.s { color: red; }`,
	} {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	w.Close()
	f.Close()

	a, err := archive.Open(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	page, err := NewSaved(a, true, nil).Load(context.Background(), "saved/board.html")
	if err != nil {
		t.Fatal(err)
	}
	items, err := page.Styles[0].Rules()
	if err != nil || len(items) != 1 {
		t.Errorf("sheet from archive: %v, %v", items, err)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		base, href string
		want       string
		local      bool
	}{
		{"page.html", "page_files/a.css", "page_files/a.css", true},
		{"dir/page.html", "a.css", "dir/a.css", true},
		{"dir/page.html", "./css/../a.css?v=3#x", "dir/a.css", true},
		{"dir/page.html", "/a.css", "a.css", true},
		{"dir/page.html", "a%20b.css", "dir/a b.css", true},
		{"page.html", "../a.css", "", false},
		{"page.html", "https://cdn.example.com/a.css", "", false},
		{"page.html", "//cdn.example.com/a.css", "", false},
		{"page.html", "data:text/css,.a{}", "", false},
		{"page.html", "?v=1", "", false},
	}
	for _, tt := range tests {
		got, err := resolve(tt.base, tt.href)
		if tt.local {
			if err != nil || got != tt.want {
				t.Errorf("resolve(%q, %q) = %q, %v, want %q", tt.base, tt.href, got, err, tt.want)
			}
			continue
		}
		if err == nil {
			t.Errorf("resolve(%q, %q) = %q, expected error", tt.base, tt.href, got)
		}
	}
}

func TestIsPage(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"board.html", true},
		{"dir/Board.HTM", true},
		{"dir/board.xhtml", true},
		{"board_files/frame.html", false},
		{`saved\board_files\frame.html`, false},
		{"board.css", false},
		{"board", false},
	}
	for _, tt := range tests {
		if got := IsPage(tt.name); got != tt.want {
			t.Errorf("IsPage(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIsURL(t *testing.T) {
	for src, want := range map[string]bool{
		"https://app.example.com/board": true,
		"HTTP://localhost:3000":         true,
		"/home/user/board.html":         false,
		"board.zip":                     false,
	} {
		if got := IsURL(src); got != want {
			t.Errorf("IsURL(%q) = %v, want %v", src, got, want)
		}
	}
}

func TestDecodeSnapshot(t *testing.T) {
	data := `{
		"html": "<html><head></head><body><div class=\"canvas-container\"><div>x</div></div></body></html>",
		"sheets": [
			{"name": "https://app.example.com/app.css", "rules": [
				{"type": "style", "selector": ".a", "text": ".a { color: red; }"},
				{"type": "group", "prelude": "@media (min-width: 640px)", "rules": [
					{"type": "style", "selector": ".sm\\:p-2", "text": ".sm\\:p-2 { padding: 0.5rem; }"}
				]}
			]},
			{"name": "https://fonts.example.com/f.css", "error": "SecurityError: Failed to read the 'cssRules' property"}
		]
	}`

	root, src, err := decodeSnapshot([]byte(data))
	if err != nil {
		t.Fatalf("decodeSnapshot() error = %v", err)
	}
	sel, _ := dom.Compile(".canvas-container > div")
	if root.Query(sel) == nil {
		t.Error("document was not decoded")
	}

	equal(t, names(src), []string{"https://app.example.com/app.css", "https://fonts.example.com/f.css"})

	items, err := src[0].Rules()
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[0].Rule == nil || items[1].Group == nil {
		t.Fatalf("unexpected items: %+v", items)
	}
	if got := items[1].Group.Text(); got != `@media (min-width: 640px) { .sm\:p-2 { padding: 0.5rem; } }` {
		t.Errorf("group text = %q", got)
	}

	if _, err := src[1].Rules(); !errors.Is(err, css.ErrInaccessible) {
		t.Errorf("expected inaccessible sheet, got %v", err)
	}
}

func TestDecodeSnapshot_Errors(t *testing.T) {
	if _, _, err := decodeSnapshot([]byte("not json")); err == nil {
		t.Error("expected error for malformed snapshot")
	}
	if _, _, err := decodeSnapshot([]byte(`{"sheets": []}`)); err == nil {
		t.Error("expected error for snapshot without document")
	}
}

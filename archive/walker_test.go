package archive

import (
	"archive/zip"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

type entry struct {
	name    string
	content string
}

func makeZip(t *testing.T, files ...entry) string {
	t.Helper()

	zipPath := filepath.Join(t.TempDir(), "test.zip")
	zipFile, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("Failed to create zip file: %v", err)
	}
	defer zipFile.Close()

	w := zip.NewWriter(zipFile)
	for _, f := range files {
		fw, err := w.Create(f.name)
		if err != nil {
			t.Fatalf("Failed to create file %s in zip: %v", f.name, err)
		}
		if _, err := fw.Write([]byte(f.content)); err != nil {
			t.Fatalf("Failed to write content for %s: %v", f.name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to finalize zip: %v", err)
	}
	return zipPath
}

func open(t *testing.T, path string) *Archive {
	t.Helper()
	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestWalk(t *testing.T) {
	zipPath := makeZip(t,
		entry{"boards/page10.html", "ten"},
		entry{"boards/page2.html", "two"},
		entry{"boards/css/site.css", ".a{}"},
		entry{"notes/readme.txt", "readme"},
		entry{"index.html", "index"},
	)
	a := open(t, zipPath)

	if a.Path() != zipPath {
		t.Errorf("Path() = %s, want %s", a.Path(), zipPath)
	}

	tests := []struct {
		name    string
		pattern string
		want    []string
	}{
		{"boards prefix", "boards/", []string{"boards/css/site.css", "boards/page2.html", "boards/page10.html"}},
		{"notes prefix", "notes/", []string{"notes/readme.txt"}},
		{"everything", "", []string{"boards/css/site.css", "boards/page2.html", "boards/page10.html", "index.html", "notes/readme.txt"}},
		{"no match", "missing/", nil},
		{"case sensitive", "Boards/", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var visited []string
			err := a.Walk(tt.pattern, func(archive string, file *zip.File) error {
				if archive != zipPath {
					t.Errorf("archive = %s, want %s", archive, zipPath)
				}
				visited = append(visited, file.Name)
				return nil
			})
			if err != nil {
				t.Fatalf("Walk() error = %v", err)
			}
			if len(visited) != len(tt.want) {
				t.Fatalf("visited %v, want %v", visited, tt.want)
			}
			for i := range visited {
				if visited[i] != tt.want[i] {
					t.Errorf("visited[%d] = %s, want %s", i, visited[i], tt.want[i])
				}
			}
		})
	}
}

func TestWalk_SkipsDirectories(t *testing.T) {
	a := open(t, makeZip(t, entry{"dir/", ""}, entry{"dir/page.html", "x"}))

	count := 0
	if err := a.Walk("", func(string, *zip.File) error { count++; return nil }); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("visited %d entries, want 1", count)
	}
}

func TestWalk_EarlyTermination(t *testing.T) {
	a := open(t, makeZip(t, entry{"a.html", "a"}, entry{"b.html", "b"}, entry{"c.html", "c"}))

	stop := errors.New("stop")
	count := 0
	err := a.Walk("", func(string, *zip.File) error {
		count++
		if count == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Errorf("Walk() error = %v, want %v", err, stop)
	}
	if count != 2 {
		t.Errorf("visited %d entries before stop, want 2", count)
	}
}

func TestWalk_UnsafePath(t *testing.T) {
	a := open(t, makeZip(t, entry{"ok.html", "x"}, entry{"../evil.html", "y"}))

	err := a.Walk("", func(string, *zip.File) error { return nil })
	if err == nil {
		t.Fatal("expected error for path traversal entry")
	}
}

func TestOpen_InvalidArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.zip")
	if err := os.WriteFile(path, []byte("not a zip"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("expected error for invalid archive")
	}
	if _, err := Open(filepath.Join(t.TempDir(), "absent.zip")); err == nil {
		t.Error("expected error for missing archive")
	}
}

func TestArchive_FS(t *testing.T) {
	a := open(t, makeZip(t, entry{"boards/css/site.css", ".a { color: red; }"}))

	data, err := fs.ReadFile(a, "boards/css/site.css")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != ".a { color: red; }" {
		t.Errorf("ReadFile() = %q", data)
	}

	f, err := a.Open("boards/missing.css")
	if err == nil {
		f.Close()
		t.Fatal("expected error for missing entry")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error = %v, want fs.ErrNotExist", err)
	}
}

func TestIsSafePath(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"page.html", true},
		{"dir/sub/page.html", true},
		{"dir/..page.html", true},
		{"../page.html", false},
		{"dir/../../page.html", false},
		{"/abs/page.html", false},
		{`\abs\page.html`, false},
	}
	for _, tt := range tests {
		if got := isSafePath(tt.name); got != tt.want {
			t.Errorf("isSafePath(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

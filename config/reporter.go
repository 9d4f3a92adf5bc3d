package config

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/multierr"

	"canvasx/misc"
)

type ReporterConfig struct {
	Destination string `yaml:"destination" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
}

// Prepare creates empty debug report. When destination could not be created
// report goes to temporary directory, Name tells where.
func (conf *ReporterConfig) Prepare() (*Report, error) {
	f, err := os.Create(conf.Destination)
	if err != nil {
		if f, err = os.CreateTemp("", misc.GetAppName()+"-report.*.zip"); err != nil {
			return nil, fmt.Errorf("unable to create report: %w", err)
		}
	}
	return &Report{file: f, entries: make(map[string]item)}, nil
}

// item is a single report entry: either file referenced by path and read
// when report is closed, or content captured at the time of the call.
type item struct {
	from    string
	content []byte
	stamp   time.Time
}

func (it item) captured() bool {
	return it.content != nil
}

// Report collects files and data describing a run, Close writes them all into
// single zip archive. All Report methods are safe to call on nil receiver,
// which means report was not requested.
// NOTE: not to be used concurrently.
type Report struct {
	file    *os.File
	entries map[string]item
}

// Name returns absolute name of the report archive.
func (r *Report) Name() string {
	if r == nil || r.file == nil {
		return ""
	}
	if n, err := filepath.Abs(r.file.Name()); err == nil {
		return n
	}
	return r.file.Name()
}

// Store remembers file to be put into report under name. File is read on
// Close, so it should stay around till then. Storing the same path again is
// ignored, different path under taken name gets versioned name.
func (r *Report) Store(name, file string) {
	if r == nil {
		return
	}
	if abs, err := filepath.Abs(file); err == nil {
		file = abs
	}
	if old, exists := r.entries[name]; exists {
		if !old.captured() && old.from == file {
			return
		}
		name = r.versioned(name)
	}
	r.entries[name] = item{from: file}
}

// StoreData puts data into report under name. Repeated names are versioned:
// batch runs store the same kinds of data for every page.
func (r *Report) StoreData(name string, data []byte) {
	if r == nil {
		return
	}
	if data == nil {
		data = []byte{}
	}
	r.add(name, item{from: "data", content: data, stamp: time.Now()})
}

// StoreCopy captures current content of file from fsys, pages read from
// archives and directories end up in report the same way.
func (r *Report) StoreCopy(name string, fsys fs.FS, file string) error {
	if r == nil {
		return nil
	}
	data, err := fs.ReadFile(fsys, file)
	if err != nil {
		return fmt.Errorf("unable to copy %s into report: %w", file, err)
	}
	stamp := time.Now()
	if info, err := fs.Stat(fsys, file); err == nil {
		stamp = info.ModTime()
	}
	r.add(name, item{from: file, content: data, stamp: stamp})
	return nil
}

func (r *Report) add(name string, it item) {
	if _, exists := r.entries[name]; exists {
		name = r.versioned(name)
	}
	r.entries[name] = it
}

// versioned returns first free "name-N.ext" variant of name.
func (r *Report) versioned(name string) string {
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", base, i, ext)
		if _, exists := r.entries[candidate]; !exists {
			return candidate
		}
	}
}

// Close writes report archive. Referenced files which are gone by now are
// listed in MANIFEST but otherwise skipped.
func (r *Report) Close() (err error) {
	if r == nil || r.file == nil {
		return nil
	}
	defer func() {
		err = multierr.Append(err, r.file.Close())
	}()

	arc := zip.NewWriter(r.file)
	defer func() {
		err = multierr.Append(err, arc.Close())
	}()

	names := slices.Sorted(maps.Keys(r.entries))
	if err := writeEntry(arc, "MANIFEST", time.Now(), r.manifest(names)); err != nil {
		return err
	}
	for _, name := range names {
		it := r.entries[name]
		if it.captured() {
			if err := writeEntry(arc, name, it.stamp, bytes.NewReader(it.content)); err != nil {
				return err
			}
			continue
		}
		if err := writeFile(arc, name, it.from); err != nil {
			return err
		}
	}
	return nil
}

func (r *Report) manifest(names []string) io.Reader {
	buf := new(bytes.Buffer)
	for _, name := range names {
		it := r.entries[name]
		stamp := it.stamp
		if stamp.IsZero() {
			stamp = time.Now()
			if info, err := os.Stat(it.from); err == nil {
				stamp = info.ModTime()
			}
		}
		kind := "file"
		if it.captured() {
			kind = fmt.Sprintf("copy %d bytes", len(it.content))
		}
		fmt.Fprintf(buf, "%s\t%s\t%s\t%s\n", stamp.UTC().Format(time.RFC3339), name, kind, it.from)
	}
	return buf
}

func writeFile(arc *zip.Writer, name, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return nil
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}
	return writeEntry(arc, name, info.ModTime(), f)
}

func writeEntry(arc *zip.Writer, name string, stamp time.Time, src io.Reader) error {
	w, err := arc.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: stamp})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}

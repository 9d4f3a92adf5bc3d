package convert

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"canvasx/archive"
	"canvasx/config"
	"canvasx/css"
	"canvasx/export"
	"canvasx/source"
	"canvasx/state"
)

// Run is export command action.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	if !source.IsURL(src) {
		if src, err = filepath.Abs(src); err != nil {
			return err
		}
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Mailformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	if name := cmd.String("on-error"); len(name) > 0 {
		policy, err := config.ParseFailurePolicy(name)
		if err != nil {
			return err
		}
		env.Cfg.Export.OnCanvasError = policy
	}
	if name := cmd.String("axis-pairs"); len(name) > 0 {
		pairs, err := config.ParseAxisPairs(name)
		if err != nil {
			return err
		}
		env.Cfg.Export.AxisPairs = pairs
	}
	if cmd.Bool("keep-groups") {
		env.Cfg.Export.KeepGroupContext = true
	}

	env.NoDirs, env.Overwrite = cmd.Bool("nodirs"), cmd.Bool("overwrite")

	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	cp := cmd.String("force-zip-cp")
	if len(cp) > 0 {
		env.CodePage, err = ianaindex.IANA.Encoding(cp)
		if err != nil {
			log.Warn("Unknown character set, ignoring", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
		}
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	p, err := newProcessor(env, log)
	if err != nil {
		return err
	}
	if source.IsURL(src) {
		return p.processURL(ctx, src, dst)
	}
	return p.process(ctx, src, dst)
}

// processor keeps what is shared by all pages of a single run.
type processor struct {
	env      *state.LocalEnv
	exporter *export.Exporter
	log      *zap.Logger

	index   int            // pages written so far
	outputs map[string]bool // output names produced so far
}

func newProcessor(env *state.LocalEnv, log *zap.Logger) (*processor, error) {
	e, err := export.New(&env.Cfg.Export, log)
	if err != nil {
		return nil, fmt.Errorf("unable to prepare exporter: %w", err)
	}
	return &processor{
		env:      env,
		exporter: e,
		log:      log,
		outputs:  make(map[string]bool),
	}, nil
}

// process handles the core export logic independently of CLI framework. It
// determines the input type (directory, archive, or single page) and
// processes accordingly.
func (p *processor) process(ctx context.Context, src, dst string) error {
	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			if err := p.processDir(ctx, head, dst); err != nil {
				return fmt.Errorf("unable to process directory: %w", err)
			}
			break
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		isArchive, err := isArchiveFile(head)
		if err != nil {
			// checking format - but cannot open target file
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if isArchive {
			// we need to look inside to see if path makes sense
			tail = strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator))
			if err := p.processArchive(ctx, head, filepath.ToSlash(tail), "", dst); err != nil {
				return fmt.Errorf("unable to process archive: %w", err)
			}
			break
		}

		if source.IsPage(filepath.Base(head)) && len(tail) == 0 {
			loader := source.NewSaved(os.DirFS(filepath.Dir(head)), p.env.Cfg.Source.FollowImports, p.log)
			return p.processPage(ctx, loader, filepath.Base(head), filepath.Base(head), dst)
		}
		return fmt.Errorf("input was not recognized as saved html page (%s)", head)
	}
	if len(head) == 0 {
		return fmt.Errorf("input source was not found (%s)", src)
	}
	return nil
}

// processURL exports live page.
func (p *processor) processURL(ctx context.Context, url, dst string) error {
	b := source.NewBrowser(&p.env.Cfg.Source.Browser, p.env.Cfg.Source.FollowImports, p.log)
	defer func() {
		if err := b.Close(); err != nil {
			p.log.Warn("Unable to close browser", zap.Error(err))
		}
	}()
	return p.processPage(ctx, b, url, "", dst)
}

// processDir walks directory tree finding saved pages and archives and
// processes them in natural order of their paths.
func (p *processor) processDir(ctx context.Context, dir, dst string) (err error) {
	var pages, archives []string
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err != nil {
			p.log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if info.IsDir() && path != dir && strings.HasSuffix(info.Name(), "_files") {
			// resources of saved page
			return filepath.SkipDir
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		isArchive, err := isArchiveFile(path)
		if err != nil {
			// checking format - but cannot open target file
			p.log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		switch {
		case isArchive:
			archives = append(archives, path)
		case source.IsPage(strings.TrimPrefix(path, dir)):
			pages = append(pages, path)
		default:
			p.log.Debug("Skipping file, not recognized as page or archive", zap.String("file", path))
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(pages)+len(archives) == 0 {
		p.log.Debug("Nothing to process", zap.String("dir", dir))
		return nil
	}

	loader := source.NewSaved(os.DirFS(dir), p.env.Cfg.Source.FollowImports, p.log)
	for _, path := range sortNatural(pages) {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))
		if err := p.processPage(ctx, loader, filepath.ToSlash(rel), rel, dst); err != nil {
			p.log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
		}
	}
	for _, path := range sortNatural(archives) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.processArchive(ctx, path, "", filepath.Dir(strings.TrimPrefix(path, dir)), dst); err != nil {
			p.log.Error("Unable to process archive", zap.String("file", path), zap.Error(err))
		}
	}
	return nil
}

// processArchive walks all files inside archive, finds saved pages under
// "pathIn" and processes them.
func (p *processor) processArchive(ctx context.Context, path, pathIn, pathOut, dst string) (err error) {
	a, err := archive.Open(path)
	if err != nil {
		return err
	}
	defer a.Close()

	loader := source.NewSaved(a, p.env.Cfg.Source.FollowImports, p.log)

	count := 0
	err = a.Walk(pathIn, func(archive string, f *zip.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !source.IsPage(f.FileHeader.Name) {
			p.log.Debug("Skipping file, not recognized as page", zap.String("archive", archive), zap.String("file", f.FileHeader.Name))
			return nil
		}

		count++

		cp := p.env.CodePage

		pathInArchive := f.FileHeader.Name
		if cp != nil && f.FileHeader.NonUTF8 {
			// forcing zip file name encoding
			if n, err := cp.NewDecoder().String(pathInArchive); err == nil {
				pathInArchive = n
			} else {
				n, _ = ianaindex.IANA.Name(cp)
				p.log.Warn("Unable to convert archive name from specified encoding",
					zap.String("charset", n), zap.String("path", pathInArchive), zap.Error(err))
			}
		}
		if err := p.processPage(ctx, loader, f.FileHeader.Name, filepath.Join(pathOut, filepath.FromSlash(pathInArchive)), dst); err != nil {
			p.log.Error("Unable to process file in archive",
				zap.String("archive", archive), zap.String("file", f.FileHeader.Name), zap.Error(err))
		}
		return nil
	})
	if err == nil && count == 0 {
		p.log.Debug("Nothing to process", zap.String("archive", path))
	}
	return err
}

// processPage exports single page. "name" is what loader understands: path
// inside file system or url. "src" is part of the source path (always
// including file name) relative to the original path, empty for live pages.
// "dst" is the destination directory where the export should be written.
func (p *processor) processPage(ctx context.Context, loader source.Loader, name, src, dst string) (rerr error) {
	var outputName string

	p.log.Info("Export starting", zap.String("from", name))
	defer func(start time.Time) {
		if r := recover(); r != nil {
			p.log.Error("Export ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("export panic: %v", r)
		} else if rerr == nil {
			p.log.Info("Export completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName))
		}
	}(time.Now())

	page, err := loader.Load(ctx, name)
	if err != nil {
		return fmt.Errorf("unable to load page (%s): %w", name, err)
	}
	if saved, ok := loader.(*source.Saved); ok {
		p.storeSources(saved.FS(), page.Files)
	} else {
		p.storeSnapshot(page)
	}

	doc, err := p.exporter.Export(ctx, page.Root, page.Styles)
	if err != nil {
		return fmt.Errorf("unable to export page (%s): %w", name, err)
	}
	if err := doc.Err(); err != nil {
		p.log.Warn("Some canvases were not exported", zap.Int("failed", doc.Failed()), zap.Error(err))
	}

	p.index++
	outputName = p.buildOutputPath(pageName(name), src, dst, p.index)

	// Check if output file already exists
	if _, err := os.Stat(outputName); err == nil {
		if !p.env.Overwrite {
			return fmt.Errorf("output file already exists: %s", outputName)
		}
		p.log.Warn("Overwriting existing file", zap.String("file", outputName))
		if err = os.Remove(outputName); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	} else if err := os.MkdirAll(filepath.Dir(outputName), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	if err := writeDocument(outputName, doc); err != nil {
		return fmt.Errorf("unable to write export: %w", err)
	}

	// Store export result for debugging
	if p.env.Rpt != nil {
		p.env.Rpt.StoreData(fmt.Sprintf("export-%d.txt", p.index), []byte(doc.Dump()))
		p.env.Rpt.Store(fmt.Sprintf("result-%d%s", p.index, filepath.Ext(outputName)), outputName)
	}
	return nil
}

// storeSources puts copies of files page was built from into debug report.
func (p *processor) storeSources(fsys fs.FS, files []string) {
	if p.env.Rpt == nil {
		return
	}
	for _, file := range files {
		if err := p.env.Rpt.StoreCopy(path.Join("source", file), fsys, file); err != nil {
			p.log.Warn("Unable to store page source in report", zap.String("file", file), zap.Error(err))
		}
	}
}

// storeSnapshot puts live page document and style sheets, as they were read
// from the browser, into debug report.
func (p *processor) storeSnapshot(page *source.Page) {
	if p.env.Rpt == nil {
		return
	}
	if markup, err := page.Root.Render(); err == nil {
		p.env.Rpt.StoreData("snapshot/page.html", []byte(markup))
	} else {
		p.log.Warn("Unable to store page snapshot in report", zap.Error(err))
	}
	for i, sheet := range page.Styles {
		if s, ok := sheet.(*css.Stylesheet); ok {
			p.env.Rpt.StoreData(fmt.Sprintf("snapshot/sheet-%d.css", i+1), []byte(s.String()))
		}
	}
}

func writeDocument(name string, doc *export.Document) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		if e := f.Close(); err == nil {
			err = e
		}
	}()
	_, err = doc.WriteTo(f)
	return err
}

func sortNatural(paths []string) []string {
	slices.SortStableFunc(paths, func(x, y string) int {
		switch {
		case natural.Less(x, y):
			return -1
		case natural.Less(y, x):
			return 1
		}
		return 0
	})
	return paths
}

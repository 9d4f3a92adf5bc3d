package convert

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"canvasx/config"
	"canvasx/source"
)

const (
	outputExt         = ".html"
	defaultOutputName = "canvases-export-%d"
)

// buildOutputPath returns constructed output file path/name for exported
// page. It uses name template from configuration and takes into account
// whether to preserve source directory structure on the output. It cleans up
// path, if requested transliterates it, and makes sure that no two pages of
// the same run get the same output name.
func (p *processor) buildOutputPath(page, src, dst string, index int) string {
	now := p.env.Stamp()

	outDir := determineOutputDir(src, dst, p.env.NoDirs)
	values := Values{
		Timestamp: now.UnixMilli(),
		Time:      now,
		Page:      page,
		Index:     index,
	}

	expandedName, err := expandTemplate(config.OutputNameTemplateFieldName, p.env.Cfg.Export.OutputNameTemplate, values)
	if err != nil {
		p.log.Warn("Unable to prepare output filename", zap.Error(err))
		expandedName = ""
	}
	if strings.TrimSpace(expandedName) == "" {
		// fallback to default name if template expansion failed
		expandedName = fmt.Sprintf(defaultOutputName, values.Timestamp)
	}

	return p.unique(assemblePathWithSubdirs(outDir, filepath.FromSlash(expandedName), p.env.Cfg.Export.FileNameTransliterate))
}

// unique adds "-N" suffix to name already produced during this run.
func (p *processor) unique(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	out := name
	for i := 2; p.outputs[out]; i++ {
		out = fmt.Sprintf("%s-%d%s", base, i, ext)
	}
	p.outputs[out] = true
	return out
}

func determineOutputDir(src, dst string, noDirs bool) string {
	if noDirs || src == "" {
		return dst
	}
	return filepath.Join(dst, filepath.Dir(src))
}

// pageName returns short page name usable in output file names.
func pageName(name string) string {
	if source.IsURL(name) {
		u, err := url.Parse(name)
		if err != nil {
			return ""
		}
		return strings.ReplaceAll(strings.Trim(u.Host+u.Path, "/"), "/", "-")
	}
	base := path.Base(filepath.ToSlash(name))
	return strings.TrimSuffix(base, path.Ext(base))
}

// assemblePathWithSubdirs takes an expanded template name (which may contain
// path separators for subdirectories) and assembles it into a full output path,
// cleaning and transliterating segments as needed
func assemblePathWithSubdirs(outDir, expandedName string, transliterate bool) string {
	pathSegments := splitPath(expandedName)
	if len(pathSegments) == 0 {
		pathSegments = []string{""}
	}

	dirParts := make([]string, 0, len(pathSegments)+1)
	dirParts = append(dirParts, outDir)
	for _, segment := range pathSegments[:len(pathSegments)-1] {
		dirParts = append(dirParts, cleanPathSegment(segment, transliterate))
	}
	dirParts = append(dirParts, cleanPathSegment(pathSegments[len(pathSegments)-1], transliterate)+outputExt)
	return filepath.Join(dirParts...)
}

// splitPath returns path segments, dropping empty and relative ones so
// result never leaves output directory.
func splitPath(name string) []string {
	segments := make([]string, 0, 8)
	for _, s := range strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == filepath.Separator }) {
		if s == "." || s == ".." {
			continue
		}
		segments = append(segments, s)
	}
	return segments
}

func cleanPathSegment(segment string, transliterate bool) string {
	if transliterate {
		segment = slug.Make(segment)
	}
	return config.CleanFileName(segment)
}

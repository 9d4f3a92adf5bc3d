package convert

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	sprig "github.com/go-task/slim-sprig/v3"

	"canvasx/config"
)

// Values is a struct that holds variables we make available for template expansion
type Values struct {
	Context   string
	Timestamp int64     // export time, unix milliseconds
	Time      time.Time // export time
	Page      string    // page file name without extension, or url host and path
	Index     int       // 1-based position of page among pages exported by this run
}

func expandTemplate(name config.TemplateFieldName, field string, values Values) (string, error) {
	funcMap := sprig.FuncMap()

	tmpl, err := template.New(string(name)).Funcs(funcMap).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	values.Context = string(name)

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}

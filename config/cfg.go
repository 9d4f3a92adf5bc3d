package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	ExportConfig struct {
		CanvasSelector        string        `yaml:"canvas_selector" validate:"required"`
		ContentRootSelector   string        `yaml:"content_root_selector"`
		OnCanvasError         FailurePolicy `yaml:"on_canvas_error" validate:"gte=0"`
		AxisPairs             AxisPairs     `yaml:"axis_pairs" validate:"gte=0"`
		KeepGroupContext      bool          `yaml:"keep_group_context"`
		OutputNameTemplate    string        `yaml:"output_name_template" validate:"required"`
		FileNameTransliterate bool          `yaml:"file_name_transliterate"`
	}

	BrowserConfig struct {
		// When set, connect to already running browser instead of launching one.
		RemoteURL SecretURL     `yaml:"remote_url,omitempty" validate:"omitempty,url"`
		Bin       string        `yaml:"bin,omitempty" validate:"omitempty,filepath"`
		Headless  bool          `yaml:"headless"`
		Timeout   time.Duration `yaml:"timeout" validate:"gt=0"`
		Settle    time.Duration `yaml:"settle" validate:"gte=0"`
	}

	SourceConfig struct {
		FollowImports bool          `yaml:"follow_imports"`
		Browser       BrowserConfig `yaml:"browser"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Export    ExportConfig   `yaml:"export"`
		Source    SourceConfig   `yaml:"source"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above, template is expanded when
	// output file name is requested, not when configuration is loaded
	OutputNameTemplateFieldName TemplateFieldName = "output_name_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
)

// decode puts values from data on top of cfg. Unknown keys are errors, so
// misspelled options do not go unnoticed.
func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

// LoadConfiguration returns defaults from embedded template with values from
// configuration file at path (if any) on top. Result is sanitized and
// validated.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	defaults, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg := &Config{}
	if err := decode(defaults, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode default configuration: %w", err)
	}

	if len(path) > 0 {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	}

	if err := gencfg.Sanitize(cfg); err != nil {
		return nil, fmt.Errorf("bad configuration: %w", err)
	}
	if err := gencfg.Validate(cfg); err != nil {
		return nil, fmt.Errorf("bad configuration: %w", err)
	}
	return cfg, nil
}

// Prepare returns default configuration as produced from embedded template.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

// Dump returns actual configuration as yaml, secrets are masked.
func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal configuration: %w", err)
	}
	return data, nil
}

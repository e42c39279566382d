package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	LoweringConfig struct {
		TransientPrefix string        `yaml:"transient_prefix" validate:"required"`
		KeepProps       []string      `yaml:"keep_props" validate:"dive,required"`
		FailOn          FailurePolicy `yaml:"fail_on" validate:"gte=0"`
	}

	OutputConfig struct {
		Format          OutputFormat `yaml:"format" validate:"gte=0"`
		SummaryTemplate string       `yaml:"summary_template" validate:"required_if=Format 2"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Lowering  LoweringConfig `yaml:"lowering"`
		Output    OutputConfig   `yaml:"output"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

// SummaryTemplateFieldName names the yaml field holding summary template, the
// field is left unexpanded when defaults are generated.
const SummaryTemplateFieldName TemplateFieldName = "summary_template"

var requiredOptions = []func(*gencfg.ProcessingOptions){
	gencfg.WithDoNotExpandField(string(SummaryTemplateFieldName)),
}

// decode applies data on top of cfg. Unknown keys are errors. Checked
// configuration is sanitized and validated.
func decode(data []byte, cfg *Config, checked bool) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if !checked {
		return nil
	}
	if err := gencfg.Sanitize(cfg); err != nil {
		return fmt.Errorf("failed to sanitize configuration: %w", err)
	}
	if err := gencfg.Validate(cfg); err != nil {
		return fmt.Errorf("failed to validate configuration: %w", err)
	}
	return nil
}

// LoadConfiguration expands embedded defaults and applies file at path over
// them. Empty path means defaults only.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	defaults, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}

	cfg := &Config{}
	// defaults are checked together with the file when one is given
	if err := decode(defaults, cfg, len(path) == 0); err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if len(path) == 0 {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := decode(data, cfg, true); err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare returns embedded defaults as yaml.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

// Dump renders effective configuration as yaml.
func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %w", err)
	}
	return data, nil
}

// KeepSet returns forwarded props as a set.
func (conf *LoweringConfig) KeepSet() map[string]bool {
	keep := make(map[string]bool, len(conf.KeepProps))
	for _, p := range conf.KeepProps {
		keep[p] = true
	}
	return keep
}

package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/sandrolain/goxq/pkg/evaluator"
	"github.com/sandrolain/goxq/pkg/expr"
	"github.com/sandrolain/goxq/pkg/storage"
)

// Config is the content of a config file.
//
//	timeout: 5s
//	collation: de
//	chop: false
//	bindings:
//	  limit: 10
type Config struct {
	// Timeout bounds an evaluation. Zero keeps the evaluator default.
	Timeout time.Duration `yaml:"timeout"`
	// Debug logs every rewrite of the compiler.
	Debug bool `yaml:"debug"`
	// Collation is a BCP 47 tag for string comparison; empty selects
	// codepoint order.
	Collation string `yaml:"collation"`
	// Chop removes whitespace-only text nodes on import; defaults to true.
	Chop *bool `yaml:"chop"`
	// Bindings are default values of external variables.
	Bindings map[string]any `yaml:"bindings"`
}

// LoadConfig reads a config file. An empty path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Collation != "" {
		if _, err := language.Parse(cfg.Collation); err != nil {
			return nil, fmt.Errorf("config %s: collation: %w", path, err)
		}
	}
	return cfg, nil
}

// CompileOptions maps the config onto compiler options.
func (c *Config) CompileOptions(logger *slog.Logger) []expr.CompileOption {
	opts := []expr.CompileOption{expr.WithLogger(logger), expr.WithDebug(c.Debug)}
	if c.Collation != "" {
		opts = append(opts, expr.WithCollation(language.Make(c.Collation)))
	}
	return opts
}

// EvalOptions maps the config onto evaluator options.
func (c *Config) EvalOptions(logger *slog.Logger) []evaluator.EvalOption {
	opts := []evaluator.EvalOption{
		evaluator.WithLogger(logger),
		evaluator.WithDebug(c.Debug),
		evaluator.WithCompileOptions(c.CompileOptions(logger)...),
	}
	if c.Timeout > 0 {
		opts = append(opts, evaluator.WithTimeout(c.Timeout))
	}
	return opts
}

// XMLOptions maps the config onto import options.
func (c *Config) XMLOptions() []storage.XMLOption {
	if c.Chop == nil {
		return nil
	}
	return []storage.XMLOption{storage.WithChop(*c.Chop)}
}

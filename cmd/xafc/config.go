/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strings"
	"time"

	"chainguard.dev/xafc/agents/judge"
	"github.com/chainguard-dev/clog"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/pflag"
)

const (
	defaultTimeout = 60 * time.Second
	defaultDelay   = time.Second
)

type config struct {
	DataPath   string `env:"CSV_FILE_PATH,default=data/dataset.csv"`
	ResultsDir string `env:"RESULTS_DIR,default=results"`
	PromptPath string `env:"PROMPT_FILE_PATH,default=prompts/fides_score_judge.txt"`

	// OutputFormat renders the output object into the prompt: json or yaml.
	OutputFormat judge.Format `env:"OUTPUT_FORMAT,default=json"`

	// MaxRows caps the rows sent to the judge; 0 judges every row.
	MaxRows   int     `env:"MAX_ROWS_TO_PROCESS,default=5"`
	Threshold float64 `env:"CONFIDENCE_THRESHOLD,default=6.0"`

	Model   string        `env:"LLM_JUDGE_MODEL,default=gpt-4o"`
	Timeout time.Duration `env:"API_REQUEST_TIMEOUT,default=60s"`
	Delay   time.Duration `env:"API_CALL_DELAY,default=1s"`

	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`

	MetricsFile string `env:"METRICS_FILE"`
}

// apiKey returns the credential for the provider serving the judge model,
// together with the name of the variable it comes from.
func (c config) apiKey() (key, envVar string) {
	switch judge.ProviderFor(c.Model) {
	case judge.ProviderAnthropic:
		return c.AnthropicAPIKey, "ANTHROPIC_API_KEY"
	case judge.ProviderGoogle:
		return c.GeminiAPIKey, "GEMINI_API_KEY"
	default:
		return c.OpenAIAPIKey, "OPENAI_API_KEY"
	}
}

// loadDotEnv adds the variables of a .env file to the environment. Variables
// that are already set win. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// loadConfig resolves the configuration from lookuper, then applies every
// flag the user set explicitly. A value that cannot be used is logged and
// replaced by its default, so a bad setting never stops the run.
func loadConfig(ctx context.Context, lookuper envconfig.Lookuper, flags *pflag.FlagSet) config {
	var cfg config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: validLookuper(ctx, lookuper),
	}); err != nil {
		// Every remaining value decodes on its own, so this is not expected.
		clog.WarnContextf(ctx, "Using default configuration: %v", err)
		cfg = defaultConfig(ctx)
	}

	// The flag types are fixed by registerFlags, so the getters cannot fail.
	if flags.Changed("data") {
		cfg.DataPath, _ = flags.GetString("data")
	}
	if flags.Changed("results-dir") {
		cfg.ResultsDir, _ = flags.GetString("results-dir")
	}
	if flags.Changed("prompt") {
		cfg.PromptPath, _ = flags.GetString("prompt")
	}
	if flags.Changed("output-format") {
		format, _ := flags.GetString("output-format")
		cfg.OutputFormat = judge.Format(format)
	}
	if flags.Changed("max-rows") {
		cfg.MaxRows, _ = flags.GetInt("max-rows")
	}
	if flags.Changed("threshold") {
		cfg.Threshold, _ = flags.GetFloat64("threshold")
	}
	if flags.Changed("model") {
		cfg.Model, _ = flags.GetString("model")
	}
	if flags.Changed("timeout") {
		cfg.Timeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("delay") {
		cfg.Delay, _ = flags.GetDuration("delay")
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile, _ = flags.GetString("metrics-file")
	}

	if cfg.Timeout < 0 {
		clog.WarnContextf(ctx, "Ignoring negative timeout %v, using %v", cfg.Timeout, defaultTimeout)
		cfg.Timeout = defaultTimeout
	}
	if cfg.Delay < 0 {
		clog.WarnContextf(ctx, "Ignoring negative delay %v, using %v", cfg.Delay, defaultDelay)
		cfg.Delay = defaultDelay
	}
	if cfg.OutputFormat != judge.FormatJSON && cfg.OutputFormat != judge.FormatYAML {
		clog.WarnContextf(ctx, "Ignoring unknown output format %q, using %q", cfg.OutputFormat, judge.FormatJSON)
		cfg.OutputFormat = judge.FormatJSON
	}
	return cfg
}

// defaultConfig is the configuration with every variable unset.
func defaultConfig(ctx context.Context) config {
	var cfg config
	_ = envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.MapLookuper(nil),
	})
	return cfg
}

// lookupFunc adapts a function to envconfig.Lookuper.
type lookupFunc func(key string) (string, bool)

func (f lookupFunc) Lookup(key string) (string, bool) { return f(key) }

// validLookuper hides every variable whose value cannot be decoded into its
// field, logging a warning for each, so that the field keeps its default.
func validLookuper(ctx context.Context, lookuper envconfig.Lookuper) envconfig.Lookuper {
	invalid := make(map[string]bool)
	for _, key := range configKeys() {
		value, ok := lookuper.Lookup(key)
		if !ok {
			continue
		}
		var single config
		if err := envconfig.ProcessWith(ctx, &envconfig.Config{
			Target:   &single,
			Lookuper: envconfig.MapLookuper(map[string]string{key: value}),
		}); err != nil {
			clog.WarnContextf(ctx, "Ignoring invalid %s=%q, using the default: %v", key, value, err)
			invalid[key] = true
		}
	}
	return lookupFunc(func(key string) (string, bool) {
		if invalid[key] {
			return "", false
		}
		return lookuper.Lookup(key)
	})
}

// configKeys returns the environment variable names read into config.
func configKeys() []string {
	t := reflect.TypeFor[config]()
	keys := make([]string, 0, t.NumField())
	for i := range t.NumField() {
		if tag := t.Field(i).Tag.Get("env"); tag != "" {
			name, _, _ := strings.Cut(tag, ",")
			keys = append(keys, name)
		}
	}
	return keys
}

// registerFlags declares the flags that override the environment. Their
// defaults are only shown in help; unset flags never override.
func registerFlags(flags *pflag.FlagSet) {
	flags.String("data", "data/dataset.csv", "dataset CSV file (CSV_FILE_PATH)")
	flags.String("results-dir", "results", "directory for saved artifacts (RESULTS_DIR)")
	flags.String("prompt", "prompts/fides_score_judge.txt",
		"judge prompt template with a {{llm_output_json}} placeholder; single-brace {llm_output_json} templates are rejected (PROMPT_FILE_PATH)")
	flags.String("output-format", string(judge.FormatJSON), "render the output object into the prompt as json or yaml (OUTPUT_FORMAT)")
	flags.Int("max-rows", 5, "rows to judge, 0 for all (MAX_ROWS_TO_PROCESS)")
	flags.Float64("threshold", 6.0, "confidence below which a row is non-compliant (CONFIDENCE_THRESHOLD)")
	flags.String("model", "gpt-4o", "judge model; claude-* and gemini-* select other providers (LLM_JUDGE_MODEL)")
	flags.Duration("timeout", defaultTimeout, "timeout of each judge call (API_REQUEST_TIMEOUT)")
	flags.Duration("delay", defaultDelay, "pause after each judge call (API_CALL_DELAY)")
	flags.String("metrics-file", "", "write Prometheus metrics to this file (METRICS_FILE)")
	flags.String("env-file", ".env", "dotenv file loaded before reading the environment")
	flags.BoolP("verbose", "v", false, "enable debug logging")
}

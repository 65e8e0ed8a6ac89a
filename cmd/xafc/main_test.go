/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chainguard.dev/xafc/agents/judge"
	"chainguard.dev/xafc/evaluation/classification"
	"github.com/google/go-cmp/cmp"
	"github.com/openai/openai-go/option"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	stop := installMeterProvider(context.Background())
	code := m.Run()
	stop()
	os.Exit(code)
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
		want config
	}{{
		name: "defaults",
		want: config{
			DataPath:     "data/dataset.csv",
			ResultsDir:   "results",
			PromptPath:   "prompts/fides_score_judge.txt",
			OutputFormat: judge.FormatJSON,
			MaxRows:      5,
			Threshold:    6.0,
			Model:        "gpt-4o",
			Timeout:      60 * time.Second,
			Delay:        time.Second,
		},
	}, {
		name: "environment",
		env: map[string]string{
			"CSV_FILE_PATH":        "in.csv",
			"OUTPUT_FORMAT":        "yaml",
			"MAX_ROWS_TO_PROCESS":  "0",
			"CONFIDENCE_THRESHOLD": "7.5",
			"LLM_JUDGE_MODEL":      "claude-sonnet-4-5",
			"API_CALL_DELAY":       "250ms",
			"ANTHROPIC_API_KEY":    "sk-ant",
			"METRICS_FILE":         "xafc.prom",
		},
		want: config{
			DataPath:        "in.csv",
			ResultsDir:      "results",
			PromptPath:      "prompts/fides_score_judge.txt",
			OutputFormat:    judge.FormatYAML,
			MaxRows:         0,
			Threshold:       7.5,
			Model:           "claude-sonnet-4-5",
			Timeout:         60 * time.Second,
			Delay:           250 * time.Millisecond,
			AnthropicAPIKey: "sk-ant",
			MetricsFile:     "xafc.prom",
		},
	}, {
		name: "flags override environment",
		env: map[string]string{
			"CSV_FILE_PATH":       "env.csv",
			"MAX_ROWS_TO_PROCESS": "3",
			"OPENAI_API_KEY":      "sk-test",
		},
		args: []string{"--data", "flag.csv", "--max-rows", "10", "--timeout", "5s", "--threshold", "4"},
		want: config{
			DataPath:     "flag.csv",
			ResultsDir:   "results",
			PromptPath:   "prompts/fides_score_judge.txt",
			OutputFormat: judge.FormatJSON,
			MaxRows:      10,
			Threshold:    4,
			Model:        "gpt-4o",
			Timeout:      5 * time.Second,
			Delay:        time.Second,
			OpenAIAPIKey: "sk-test",
		},
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := pflag.NewFlagSet("xafc", pflag.ContinueOnError)
			registerFlags(flags)
			require.NoError(t, flags.Parse(tt.args))

			got := loadConfig(context.Background(), envconfig.MapLookuper(tt.env), flags)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("loadConfig() (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadConfigFallsBack(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		args    []string
		check   func(config) bool
		wantLog string
	}{{
		name: "malformed number",
		env:  map[string]string{"MAX_ROWS_TO_PROCESS": "five", "CSV_FILE_PATH": "in.csv"},
		check: func(c config) bool {
			return c.MaxRows == 5 && c.DataPath == "in.csv"
		},
		wantLog: `Ignoring invalid MAX_ROWS_TO_PROCESS="five"`,
	}, {
		name:    "malformed duration",
		env:     map[string]string{"API_REQUEST_TIMEOUT": "soon"},
		check:   func(c config) bool { return c.Timeout == defaultTimeout },
		wantLog: `Ignoring invalid API_REQUEST_TIMEOUT="soon"`,
	}, {
		name:    "negative delay",
		args:    []string{"--delay", "-1s"},
		check:   func(c config) bool { return c.Delay == defaultDelay },
		wantLog: "Ignoring negative delay",
	}, {
		name:    "unknown output format",
		env:     map[string]string{"OUTPUT_FORMAT": "xml"},
		check:   func(c config) bool { return c.OutputFormat == judge.FormatJSON },
		wantLog: "Ignoring unknown output format",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := pflag.NewFlagSet("xafc", pflag.ContinueOnError)
			registerFlags(flags)
			require.NoError(t, flags.Parse(tt.args))

			var logs bytes.Buffer
			ctx := withLogger(context.Background(), &logs, false)

			got := loadConfig(ctx, envconfig.MapLookuper(tt.env), flags)
			if !tt.check(got) {
				t.Errorf("loadConfig(): got = %+v, wanted the default in place of the bad value", got)
			}
			if !strings.Contains(logs.String(), tt.wantLog) {
				t.Errorf("logs: missing %q in:\n%s", tt.wantLog, logs.String())
			}
		})
	}
}

func TestAPIKey(t *testing.T) {
	cfg := config{OpenAIAPIKey: "oa", AnthropicAPIKey: "an", GeminiAPIKey: "gm"}
	tests := []struct {
		model      string
		wantKey    string
		wantEnvVar string
	}{
		{model: "gpt-4o", wantKey: "oa", wantEnvVar: "OPENAI_API_KEY"},
		{model: "claude-sonnet-4-5", wantKey: "an", wantEnvVar: "ANTHROPIC_API_KEY"},
		{model: "gemini-2.5-pro", wantKey: "gm", wantEnvVar: "GEMINI_API_KEY"},
	}
	for _, tt := range tests {
		cfg.Model = tt.model
		key, envVar := cfg.apiKey()
		if key != tt.wantKey || envVar != tt.wantEnvVar {
			t.Errorf("apiKey(%s): got = (%q, %q), wanted = (%q, %q)", tt.model, key, envVar, tt.wantKey, tt.wantEnvVar)
		}
	}
}

const datasetCSV = `id,compliance,LLM_output
a,"{""overall_compliance"": {""overall_confidence"": ""8/10""}}","{""overall_compliance"": {""overall_confidence"": ""7/10""}, ""explanation"": ""ok""}"
b,"{""overall_compliance"": {""overall_confidence"": ""4/10""}}","{""overall_compliance"": {""overall_confidence"": ""3/10""}, ""explanation"": ""not ok""}"
c,broken,"{}"
`

const judgeReply = `{
  "fidelity_accuracy": {"score": 4, "reasoning": "r"},
  "justification_soundness": {"score": 5, "reasoning": "r"},
  "clarity_coherence": {"score": 3, "reasoning": "r"}
}`

type fixture struct {
	dir     string
	data    string
	prompt  string
	results string
	metrics string
}

func newFixture(t *testing.T, csv string) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:     dir,
		data:    filepath.Join(dir, "dataset.csv"),
		prompt:  filepath.Join(dir, "prompt.txt"),
		results: filepath.Join(dir, "results"),
		metrics: filepath.Join(dir, "xafc.prom"),
	}
	require.NoError(t, os.WriteFile(f.data, []byte(csv), 0o600))
	require.NoError(t, os.WriteFile(f.prompt, []byte("Judge this:\n{{llm_output_json}}"), 0o600))
	return f
}

func (f fixture) args(extra ...string) []string {
	return append([]string{
		"--data", f.data,
		"--prompt", f.prompt,
		"--results-dir", f.results,
		"--env-file", filepath.Join(f.dir, "missing.env"),
		"--delay", "0s",
	}, extra...)
}

func execute(t *testing.T, env map[string]string, factory backendFactory, args []string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand(envconfig.MapLookuper(env), factory)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRunEndToEnd(t *testing.T) {
	f := newFixture(t, datasetCSV)

	var gotModel, gotKey string
	calls := 0
	factory := func(_ context.Context, model, apiKey string) (judge.Backend, error) {
		gotModel, gotKey = model, apiKey
		return judge.BackendFunc(func(context.Context, string) (string, error) {
			calls++
			return judgeReply, nil
		}), nil
	}

	stdout, stderr, err := execute(t, map[string]string{"OPENAI_API_KEY": "sk-test"}, factory,
		f.args("--metrics-file", f.metrics))
	require.NoError(t, err, stderr)

	if gotModel != "gpt-4o" || gotKey != "sk-test" {
		t.Errorf("backend: got = (%q, %q), wanted = (gpt-4o, sk-test)", gotModel, gotKey)
	}
	if calls != 2 {
		t.Errorf("judge calls: got = %d, wanted = 2", calls)
	}
	for _, want := range []string{
		"Classification Performance Analysis",
		"Confusion Matrix",
		"Explanation Quality Analysis (FIDES-Score)",
		"4.00 / 5.0",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout: missing %q in:\n%s", want, stdout)
		}
	}
	if !strings.Contains(stderr, "Dropped 1 rows due to JSON parsing errors") {
		t.Errorf("stderr: missing dropped-row warning in:\n%s", stderr)
	}

	if _, err := os.Stat(filepath.Join(f.results, classification.ConfusionMatrixFile)); err != nil {
		t.Errorf("confusion matrix: %v", err)
	}
	data, err := os.ReadFile(f.metrics)
	require.NoError(t, err)
	if !strings.Contains(string(data), "xafc_fides_composite_average 4") {
		t.Errorf("metrics file: missing composite in:\n%s", data)
	}
}

func TestRunRecordsTokenUsage(t *testing.T) {
	content, err := json.Marshal(judgeReply)
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o",
  "choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": %s}}],
  "usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
}`, content)
	}))
	defer srv.Close()

	factory := func(_ context.Context, model, apiKey string) (judge.Backend, error) {
		return judge.NewOpenAI(apiKey, model, option.WithBaseURL(srv.URL+"/")), nil
	}

	f := newFixture(t, datasetCSV)
	stdout, stderr, err := execute(t, map[string]string{"OPENAI_API_KEY": "sk-test"}, factory,
		f.args("--metrics-file", f.metrics, "--verbose"))
	require.NoError(t, err, stderr)

	if !strings.Contains(stdout, "Explanation Quality Analysis (FIDES-Score)") {
		t.Errorf("stdout: missing FIDES report in:\n%s", stdout)
	}

	data, err := os.ReadFile(f.metrics)
	require.NoError(t, err)
	for _, want := range []string{"genai_token_prompt", "genai_token_completion"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metrics file: missing %s in:\n%s", want, data)
		}
	}

	for _, want := range []string{`msg="Span finished"`, "span=judge.evaluate"} {
		if !strings.Contains(stderr, want) {
			t.Errorf("stderr: missing %q in:\n%s", want, stderr)
		}
	}
}

func TestRunInvalidEnvironmentIsNotFatal(t *testing.T) {
	f := newFixture(t, datasetCSV)
	factory := func(context.Context, string, string) (judge.Backend, error) {
		t.Error("backend factory called without an API key")
		return nil, nil
	}

	stdout, stderr, err := execute(t, map[string]string{"MAX_ROWS_TO_PROCESS": "abc"}, factory, f.args())
	require.NoError(t, err, stderr)
	if !strings.Contains(stderr, `Ignoring invalid MAX_ROWS_TO_PROCESS="abc"`) {
		t.Errorf("stderr: missing config warning in:\n%s", stderr)
	}
	if !strings.Contains(stdout, "Classification Performance Analysis") {
		t.Errorf("stdout: missing classification report:\n%s", stdout)
	}
}

func TestRunSkipsJudgeWithoutKey(t *testing.T) {
	f := newFixture(t, datasetCSV)
	factory := func(context.Context, string, string) (judge.Backend, error) {
		t.Error("backend factory called without an API key")
		return nil, nil
	}

	stdout, stderr, err := execute(t, nil, factory, f.args())
	require.NoError(t, err)
	if !strings.Contains(stderr, "OPENAI_API_KEY is not configured") {
		t.Errorf("stderr: missing skip warning in:\n%s", stderr)
	}
	if strings.Contains(stdout, "FIDES-Score") {
		t.Errorf("stdout: got a FIDES report without a judge:\n%s", stdout)
	}
	if !strings.Contains(stdout, "Classification Performance Analysis") {
		t.Errorf("stdout: missing classification report:\n%s", stdout)
	}
}

func TestRunMissingPromptIsNotFatal(t *testing.T) {
	f := newFixture(t, datasetCSV)
	require.NoError(t, os.Remove(f.prompt))

	calls := 0
	factory := func(context.Context, string, string) (judge.Backend, error) {
		return judge.BackendFunc(func(context.Context, string) (string, error) {
			calls++
			return judgeReply, nil
		}), nil
	}

	_, stderr, err := execute(t, map[string]string{"OPENAI_API_KEY": "sk-test"}, factory, f.args())
	require.NoError(t, err)
	if calls != 0 {
		t.Errorf("judge calls: got = %d, wanted = 0", calls)
	}
	if !strings.Contains(stderr, "Prompt file not found") {
		t.Errorf("stderr: missing prompt error in:\n%s", stderr)
	}
}

func TestRunDatasetFailures(t *testing.T) {
	tests := []struct {
		name    string
		csv     string
		remove  bool
		wantLog string
	}{{
		name:    "missing file",
		remove:  true,
		wantLog: "dataset file not found",
	}, {
		name:    "no usable rows",
		csv:     "compliance,LLM_output\nnot json,{}\n",
		wantLog: "no usable rows",
	}, {
		name:    "header only",
		csv:     "compliance,LLM_output\n",
		wantLog: "no usable rows",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.csv)
			if tt.remove {
				require.NoError(t, os.Remove(f.data))
			}
			_, stderr, err := execute(t, nil, judge.NewBackend, f.args())
			if err == nil {
				t.Fatal("Execute(): got = nil error, wanted error")
			}
			if !strings.Contains(stderr, tt.wantLog) {
				t.Errorf("stderr: missing %q in:\n%s", tt.wantLog, stderr)
			}
		})
	}
}

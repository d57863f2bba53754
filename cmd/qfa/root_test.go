package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rodekruis/qfa/internal/config"
	"github.com/rodekruis/qfa/internal/model"
	"github.com/rodekruis/qfa/internal/output/multi"
	"github.com/rodekruis/qfa/internal/output/stdout"
)

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()
	if cmd.Use != "qfa" || cmd.Version == "" {
		t.Errorf("unexpected root command: use=%q version=%q", cmd.Use, cmd.Version)
	}
	if f := cmd.PersistentFlags().Lookup("config"); f == nil || f.DefValue != config.DefaultPath {
		t.Errorf("config flag = %+v", f)
	}
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"batch", "classify", "model", "schema"} {
		if !strings.Contains(strings.Join(names, ","), want) {
			t.Errorf("missing subcommand %q in %v", want, names)
		}
	}
}

func TestSchemaSubcommands(t *testing.T) {
	var names []string
	for _, c := range NewSchemaCmd().Commands() {
		names = append(names, c.Name())
	}
	want := []string{"delete", "list", "load", "show"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("subcommands mismatch (-want +got):\n%s", diff)
	}
}

// writeTestConfig points the cache at a temp dir and keeps the log quiet.
func writeTestConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	body := "log:\n  level: error\ncache:\n  dir: " + filepath.Join(dir, "cache") + "\n" + extra
	path := filepath.Join(dir, "qfa.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSchemaListEmptyCache(t *testing.T) {
	out, err := run(t, "schema", "list", "--config", writeTestConfig(t, ""))
	if err != nil {
		t.Fatalf("schema list: %v", err)
	}
	if strings.TrimSpace(out) != "null" {
		t.Errorf("output = %q, want null", out)
	}
}

func TestModelCommand(t *testing.T) {
	out, err := run(t, "model", "--config", writeTestConfig(t, "classifier:\n  provider: zeroshot\n  model_path: m/nli.onnx\n  vocab_path: m/vocab.txt\n"))
	if err != nil {
		t.Fatalf("model: %v", err)
	}
	var info modelInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if info.Provider != "zeroshot" || info.Model != "m/nli.onnx" {
		t.Errorf("info = %+v", info)
	}
	if diff := cmp.Diff([]string{"gemini", "openai", "zeroshot"}, info.Available); diff != "" {
		t.Errorf("providers mismatch (-want +got):\n%s", diff)
	}
}

func TestInvalidConfigRejected(t *testing.T) {
	_, err := run(t, "model", "--config", writeTestConfig(t, "output:\n  verbosity: loud\n"))
	if err == nil || !strings.Contains(err.Error(), "verbosity") {
		t.Fatalf("expected verbosity error, got %v", err)
	}
}

func TestClassifyRequiresLevels(t *testing.T) {
	_, err := run(t, "classify", "--config", writeTestConfig(t, ""), "--origin", "aXyZ", "--text", "hi")
	if err == nil || !strings.Contains(err.Error(), "--levels") {
		t.Fatalf("expected --levels error, got %v", err)
	}
}

func TestOriginFlags(t *testing.T) {
	t.Setenv("QFA_ORIGIN_TOKEN", "from-env")
	f := originFlags{system: "KOBO", id: "aXyZ", levels: []string{"type", "category"}, textField: "feedback"}
	o, err := f.origin()
	if err != nil {
		t.Fatal(err)
	}
	want := model.Origin{System: "kobo", ID: "aXyZ", Authorization: "from-env", LevelFields: []string{"type", "category"}, TextField: "feedback"}
	if diff := cmp.Diff(want, o); diff != "" {
		t.Errorf("origin mismatch (-want +got):\n%s", diff)
	}

	f.token = "explicit"
	if o, _ := f.origin(); o.Authorization != "explicit" {
		t.Errorf("flag token should win, got %q", o.Authorization)
	}
	if _, err := (&originFlags{id: "  "}).origin(); err == nil {
		t.Error("expected error for blank origin")
	}
}

func TestPayloadText(t *testing.T) {
	tests := []struct {
		name    string
		origin  model.Origin
		payload map[string]any
		want    string
		wantErr bool
	}{
		{
			name:    "kobo group prefix",
			origin:  model.Origin{System: model.SystemKobo, TextField: "Feedback"},
			payload: map[string]any{"group_a/feedback": "water is dirty", "_id": float64(3)},
			want:    "water is dirty",
		},
		{
			name:    "espocrm field",
			origin:  model.Origin{System: model.SystemEspoCRM, TextField: "description"},
			payload: map[string]any{"description": "no food"},
			want:    "no food",
		},
		{
			name:    "espocrm missing",
			origin:  model.Origin{System: model.SystemEspoCRM, TextField: "description"},
			payload: map[string]any{"name": "x"},
			wantErr: true,
		},
		{
			name:    "no text field",
			origin:  model.Origin{System: model.SystemKobo},
			payload: map[string]any{"feedback": "x"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := payloadText(tt.origin, tt.payload)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadPayload(t *testing.T) {
	p, err := readPayload(strings.NewReader(`{"_id": 12, "feedback": "hi"}`), "-")
	if err != nil {
		t.Fatal(err)
	}
	if p["feedback"] != "hi" {
		t.Errorf("payload = %v", p)
	}
	path := filepath.Join(t.TempDir(), "p.json")
	os.WriteFile(path, []byte("not json"), 0o600)
	if _, err := readPayload(nil, path); err == nil {
		t.Error("expected parse error")
	}
}

func TestBuildOutput(t *testing.T) {
	var buf bytes.Buffer
	out, err := buildOutput(config.OutputConfig{Verbosity: "standard"}, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := out.(*stdout.Output); !ok {
		t.Errorf("expected stdout output, got %T", out)
	}

	path := filepath.Join(t.TempDir(), "out.ndjson")
	out, err = buildOutput(config.OutputConfig{Verbosity: "full", Path: path, WebhookURL: "http://127.0.0.1:1/hook"}, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := out.(*multi.Multi); !ok {
		t.Errorf("expected multi output, got %T", out)
	}
	out.Close()

	if _, err := buildOutput(config.OutputConfig{Verbosity: "loud"}, &buf); err == nil {
		t.Error("expected verbosity error")
	}
}

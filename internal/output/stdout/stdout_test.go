package stdout

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rodekruis/qfa/internal/model"
	"github.com/rodekruis/qfa/internal/output"
)

func testResult() model.Result {
	return model.Result{
		ID: "fb-1",
		Outcome: &model.Outcome{
			Text: "<b>billing</b> is wrong",
			Levels: []model.LevelResult{
				{Level: 1, LabelCanonical: "Complaint", Label: "Complaint", ID: "complaint"},
			},
		},
	}
}

func TestOutputCompactJSON(t *testing.T) {
	var buf bytes.Buffer
	out := NewWriter(&buf, output.Full, false)
	if err := out.Write(context.Background(), testResult()); err != nil {
		t.Fatal(err)
	}
	line := strings.TrimSuffix(buf.String(), "\n")
	if strings.Contains(line, "\n") {
		t.Fatalf("expected single-line JSON, got:\n%s", buf.String())
	}
	if !strings.Contains(line, "<b>billing</b>") {
		t.Errorf("expected HTML left unescaped, got %s", line)
	}

	var got model.Result
	if err := json.Unmarshal([]byte(line), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.ID != "fb-1" || got.Outcome == nil || got.Outcome.At(1).ID != "complaint" {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestOutputPrettyJSON(t *testing.T) {
	var buf bytes.Buffer
	out := NewWriter(&buf, output.Standard, true)
	if err := out.Write(context.Background(), testResult()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "\n  \"id\": \"fb-1\"") {
		t.Errorf("expected indented output, got:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), "billing") {
		t.Errorf("standard verbosity should drop the text, got:\n%s", buf.String())
	}
}

func TestOutputMultipleResults(t *testing.T) {
	var buf bytes.Buffer
	out := NewWriter(&buf, output.Minimal, false)
	for _, id := range []string{"a", "b", "c"} {
		if err := out.Write(context.Background(), model.Result{ID: id, Error: "boom"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(buf.String(), "\n"); n != 3 {
		t.Errorf("expected 3 lines, got %d", n)
	}
}

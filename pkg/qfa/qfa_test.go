package qfa

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const assetJSON = `{
  "uid": "aXyZ",
  "deployed_version_id": "v1",
  "content": {
    "survey": [
      {"type": "select_one", "name": "type", "select_from_list_name": "types"},
      {"type": "select_one", "name": "category", "select_from_list_name": "cats", "choice_filter": "type_col=${type}"}
    ],
    "choices": [
      {"list_name": "types", "name": "complaint", "label": ["Complaint"]},
      {"list_name": "types", "name": "suggestion", "label": ["Suggestion"]},
      {"list_name": "cats", "name": "billing", "label": ["Billing"], "type_col": "complaint"},
      {"list_name": "cats", "name": "service", "label": ["Service"], "type_col": "complaint"},
      {"list_name": "cats", "name": "other", "label": ["Other"], "type_col": "suggestion"},
      {"list_name": "cats", "name": "idea", "label": ["Idea"], "type_col": "suggestion"}
    ]
  }
}`

// keyword picks the first candidate mentioned in the text, else the first.
type keyword struct {
	mu    sync.Mutex
	calls int
}

func (k *keyword) Choose(_ context.Context, text string, candidates []string) (string, error) {
	k.mu.Lock()
	k.calls++
	k.mu.Unlock()
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(text), strings.ToLower(c)) {
			return c, nil
		}
	}
	return candidates[0], nil
}

func newTestQFA(t *testing.T, b Backend) (*QFA, *atomic.Int32) {
	t.Helper()
	var fetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/assets/aXyZ/":
			fetches.Add(1)
			w.Write([]byte(assetJSON))
		case "/api/v2/assets/":
			w.Write([]byte(`{"count":1,"results":[{"uid":"aXyZ","deployed_version_id":"v1"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	q, err := New(WithBackend(b), WithInMemoryCache(), WithSourceEndpoint(SystemKobo, srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { q.Close() })
	return q, &fetches
}

var origin = Origin{System: SystemKobo, ID: "aXyZ", Token: "tok", LevelFields: []string{"type", "category"}}

func TestClassify(t *testing.T) {
	q, _ := newTestQFA(t, &keyword{})
	out, err := q.Classify(context.Background(), origin, "a complaint about service at the desk")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	want := Outcome{
		Text: "a complaint about service at the desk",
		Levels: []Level{
			{Level: 1, ID: "complaint", Label: "Complaint", LabelCanonical: "Complaint"},
			{Level: 2, ID: "service", Label: "Service", LabelCanonical: "Service"},
		},
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("outcome mismatch (-want +got):\n%s", diff)
	}
}

func TestClassifyAllResolvesOnce(t *testing.T) {
	q, fetches := newTestQFA(t, &keyword{})
	outs, err := q.ClassifyAll(context.Background(), origin, []string{"a suggestion: an idea for the queue", "billing is wrong"})
	if err != nil {
		t.Fatal(err)
	}
	if outs[0].Levels[0].ID != "suggestion" || outs[0].Levels[1].ID != "idea" {
		t.Errorf("first = %+v", outs[0])
	}
	if outs[1].Levels[1].ID != "billing" {
		t.Errorf("second = %+v", outs[1])
	}
	if fetches.Load() != 1 {
		t.Errorf("fetches = %d, want 1", fetches.Load())
	}
}

func TestTaxonomyRefreshForget(t *testing.T) {
	q, fetches := newTestQFA(t, &keyword{})
	ctx := context.Background()
	labels, err := q.Taxonomy(ctx, origin)
	if err != nil {
		t.Fatal(err)
	}
	if len(labels) != 6 {
		t.Errorf("got %d labels, want 6", len(labels))
	}
	if err := q.Refresh(ctx, origin); err != nil {
		t.Fatal(err)
	}
	if err := q.Forget(ctx, origin); err != nil {
		t.Fatal(err)
	}
	if err := q.Forget(ctx, origin); err != nil {
		t.Errorf("second Forget: %v", err)
	}
	if fetches.Load() < 2 {
		t.Errorf("fetches = %d, want at least 2", fetches.Load())
	}
}

type failing struct{}

func (failing) Choose(context.Context, string, []string) (string, error) {
	return "", errors.New("quota exceeded")
}

func TestClassifyBackendError(t *testing.T) {
	q, _ := newTestQFA(t, failing{})
	if _, err := q.Classify(context.Background(), origin, "text"); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewBadModelPath(t *testing.T) {
	if _, err := New(WithModelDir("/nonexistent/path"), WithInMemoryCache()); err == nil {
		t.Fatal("expected error for missing model files")
	}
}

func TestResolvePaths(t *testing.T) {
	tests := []struct {
		name      string
		opts      options
		wantModel string
		wantVocab string
	}{
		{"default dir", options{}, "models/nli.onnx", "models/vocab.txt"},
		{"model dir", options{modelDir: "/m"}, "/m/nli.onnx", "/m/vocab.txt"},
		{"explicit", options{modelDir: "/m", modelPath: "a.onnx", vocabPath: "v.txt"}, "a.onnx", "v.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, v := resolvePaths(tt.opts)
			if m != tt.wantModel || v != tt.wantVocab {
				t.Errorf("got (%q, %q), want (%q, %q)", m, v, tt.wantModel, tt.wantVocab)
			}
		})
	}
}

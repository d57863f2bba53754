package espocrm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rodekruis/qfa/internal/model"
	"github.com/rodekruis/qfa/internal/source"
)

type row = map[string]any

var entities = map[string][]row{
	"FeedbackType": {
		{"id": "t1", "name": "Complaint", "modifiedAt": "2024-01-01 10:00:00"},
		{"id": "t2", "name": "Question", "modifiedAt": "2024-03-01 09:00:00"},
	},
	"FeedbackCategory": {
		{"id": "c1", "name": "Health", "modifiedAt": "2024-02-01 10:00:00", "feedbackTypeId": "t1"},
		{"id": "c2", "name": "Cash", "modifiedAt": "2024-02-02 10:00:00", "feedbackTypeId": "t1"},
		{"id": "c3", "name": "Other", "modifiedAt": "2024-02-03 10:00:00", "feedbackTypeId": "t2"},
	},
}

// fakeEspo serves entity lists honoring maxSize, offset and modifiedAt desc ordering.
func fakeEspo(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		name := r.URL.Path[len("/api/v1/"):]
		rows, ok := entities[name]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		q := r.URL.Query()
		max, _ := strconv.Atoi(q.Get("maxSize"))
		offset, _ := strconv.Atoi(q.Get("offset"))
		list := rows
		if q.Get("orderBy") == "modifiedAt" && q.Get("order") == "desc" {
			best := rows[0]
			for _, r := range rows {
				if r["modifiedAt"].(string) > best["modifiedAt"].(string) {
					best = r
				}
			}
			list = []row{best}
		}
		if offset < len(list) {
			list = list[offset:]
		} else {
			list = nil
		}
		if max > 0 && len(list) > max {
			list = list[:max]
		}
		json.NewEncoder(w).Encode(map[string]any{"total": len(rows), "list": list})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func espoOrigin(url string) model.Origin {
	return model.Origin{
		System:        model.SystemEspoCRM,
		ID:            url + "/",
		Authorization: "key",
		LevelFields:   []string{"FeedbackType", "FeedbackCategory"},
	}
}

func TestFetch(t *testing.T) {
	srv := fakeEspo(t)
	snap, err := New(source.Config{}).Fetch(context.Background(), espoOrigin(srv.URL))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	want := []model.SourceRecord{
		{ID: "t1", Label: "Complaint", Level: 1, ModifiedAt: "2024-01-01 10:00:00"},
		{ID: "t2", Label: "Question", Level: 1, ModifiedAt: "2024-03-01 09:00:00"},
		{ID: "c1", Label: "Health", Level: 2, Parent: "t1", ModifiedAt: "2024-02-01 10:00:00"},
		{ID: "c2", Label: "Cash", Level: 2, Parent: "t1", ModifiedAt: "2024-02-02 10:00:00"},
		{ID: "c3", Label: "Other", Level: 2, Parent: "t2", ModifiedAt: "2024-02-03 10:00:00"},
	}
	if diff := cmp.Diff(want, snap.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	if snap.Marker != "2024-03-01 09:00:00" {
		t.Errorf("Marker = %q", snap.Marker)
	}
}

func TestProbeMatchesFetch(t *testing.T) {
	srv := fakeEspo(t)
	s := New(source.Config{})
	o := espoOrigin(srv.URL)

	snap, err := s.Fetch(context.Background(), o)
	if err != nil {
		t.Fatal(err)
	}
	p, err := s.Probe(context.Background(), o)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if p.Marker != snap.Marker {
		t.Errorf("probe marker %q != fetch marker %q", p.Marker, snap.Marker)
	}
	if diff := cmp.Diff(map[int]int{1: 2, 2: 3}, p.Counts); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchUnauthorized(t *testing.T) {
	srv := fakeEspo(t)
	o := espoOrigin(srv.URL)
	o.Authorization = "wrong"
	_, err := New(source.Config{}).Fetch(context.Background(), o)
	if !errors.Is(err, source.ErrOriginNotFound) {
		t.Fatalf("expected ErrOriginNotFound, got %v", err)
	}
}

func TestFetchUnknownEntity(t *testing.T) {
	srv := fakeEspo(t)
	o := espoOrigin(srv.URL)
	o.LevelFields = []string{"Nope"}
	_, err := New(source.Config{}).Probe(context.Background(), o)
	if !errors.Is(err, source.ErrOriginNotFound) {
		t.Fatalf("expected ErrOriginNotFound, got %v", err)
	}
}

func TestLinkField(t *testing.T) {
	tests := []struct{ entity, suffix, want string }{
		{"FeedbackType", "Id", "feedbackTypeId"},
		{"Category", "Name", "categoryName"},
		{"x", "Id", "xId"},
		{"", "Id", "Id"},
	}
	for _, tt := range tests {
		if got := LinkField(tt.entity, tt.suffix); got != tt.want {
			t.Errorf("LinkField(%q, %q) = %q, want %q", tt.entity, tt.suffix, got, tt.want)
		}
	}
}

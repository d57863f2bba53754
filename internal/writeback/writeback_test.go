package writeback

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rodekruis/qfa/internal/model"
	"github.com/rodekruis/qfa/internal/source"
	"github.com/rodekruis/qfa/internal/source/kobo"
)

var outcome = model.Outcome{
	Text: "My invoice is wrong",
	Levels: []model.LevelResult{
		{Level: 1, LabelCanonical: "Complaint", Label: "Queja", ID: "complaint"},
		{Level: 2, LabelCanonical: "Billing", Label: "Facturación", ID: "billing"},
		{Level: 3},
	},
}

func TestKoboWrite(t *testing.T) {
	var got bulkPayload
	var method, auth, contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/assets/aXyZ/data/bulk/" {
			http.NotFound(w, r)
			return
		}
		method, auth, contentType = r.Method, r.Header.Get("Authorization"), r.Header.Get("Content-Type")
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if err := json.Unmarshal([]byte(r.PostForm.Get("payload")), &got); err != nil {
			t.Errorf("payload: %v", err)
		}
		w.Write([]byte(`{"count":1,"successes":1,"failures":0,"results":[{"uuid":"u1","status_code":200,"message":"Successful submission"}]}`))
	}))
	defer srv.Close()

	origin := model.Origin{
		System:        model.SystemKobo,
		ID:            "aXyZ",
		Authorization: "secret",
		LevelFields:   []string{"type", "category", "code"},
	}
	w := NewKobo(source.Config{Endpoint: srv.URL})
	status, err := w.Write(context.Background(), origin, outcome, map[string]any{"_id": float64(42)})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	if method != http.MethodPatch {
		t.Errorf("method = %s", method)
	}
	if auth != "Token secret" {
		t.Errorf("Authorization = %q", auth)
	}
	if contentType != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q", contentType)
	}
	want := bulkPayload{
		SubmissionIDs: []json.Number{"42"},
		Data:          map[string]string{"type": "complaint", "category": "billing"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
	if status.Code != 200 || status.Detail != "Successful submission" {
		t.Errorf("status = %+v", status)
	}
}

func TestKoboWriteErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"count":0,"results":[]}`))
	}))
	defer srv.Close()
	w := NewKobo(source.Config{Endpoint: srv.URL})
	origin := model.Origin{System: model.SystemKobo, ID: "aXyZ", LevelFields: []string{"type"}}

	if _, err := w.Write(context.Background(), origin, outcome, map[string]any{}); !errors.Is(err, kobo.ErrFieldMissing) {
		t.Errorf("missing _id: got %v", err)
	}
	if _, err := w.Write(context.Background(), origin, outcome, map[string]any{"_id": "7"}); !errors.Is(err, ErrSubmissionNotFound) {
		t.Errorf("empty results: got %v", err)
	}
}

func TestEspoCRMFields(t *testing.T) {
	origin := model.Origin{
		System:      model.SystemEspoCRM,
		ID:          "https://crm.example.org",
		LevelFields: []string{"Type", "Category", "Code"},
	}
	status, err := EspoCRM{}.Write(context.Background(), origin, outcome, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"typeId": "complaint", "typeName": "Queja",
		"categoryId": "billing", "categoryName": "Facturación",
		"codeId": "", "codeName": "",
	}
	if diff := cmp.Diff(want, status.Fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
	if status.Code != http.StatusOK {
		t.Errorf("Code = %d", status.Code)
	}
}

func TestFor(t *testing.T) {
	for _, sys := range []string{model.SystemKobo, model.SystemEspoCRM} {
		if _, err := For(sys, source.Config{}); err != nil {
			t.Errorf("For(%q): %v", sys, err)
		}
	}
	if _, err := For("sheets", source.Config{}); err == nil {
		t.Error("expected error for unknown system")
	}
}

package writeback

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rodekruis/qfa/internal/model"
	"github.com/rodekruis/qfa/internal/source"
	"github.com/rodekruis/qfa/internal/source/kobo"
)

// Kobo updates the submission's level questions through the bulk data API.
// Each question receives the chosen choice name, which is the record ID.
type Kobo struct {
	src *kobo.Source
}

// NewKobo creates a Kobo writer.
func NewKobo(cfg source.Config) *Kobo {
	return &Kobo{src: kobo.New(cfg)}
}

type bulkPayload struct {
	SubmissionIDs []json.Number     `json:"submission_ids"`
	Data          map[string]string `json:"data"`
}

type bulkResponse struct {
	Results []struct {
		StatusCode int    `json:"status_code"`
		Message    string `json:"message"`
	} `json:"results"`
}

// Fields returns the question values for out. Levels with no choice are
// left out so existing answers are kept.
func (k *Kobo) Fields(origin model.Origin, out model.Outcome) map[string]string {
	fields := make(map[string]string, len(origin.LevelFields))
	for i, q := range origin.LevelFields {
		if r := out.At(i + 1); r.Chosen() {
			fields[q] = r.ID
		}
	}
	return fields
}

// Write patches the submission identified by payload["_id"].
func (k *Kobo) Write(ctx context.Context, origin model.Origin, out model.Outcome, payload map[string]any) (Status, error) {
	id, err := kobo.SubmissionID(payload)
	if err != nil {
		return Status{}, fmt.Errorf("writeback kobo: %w", err)
	}
	fields := k.Fields(origin, out)
	body, err := json.Marshal(bulkPayload{SubmissionIDs: []json.Number{json.Number(id)}, Data: fields})
	if err != nil {
		return Status{}, fmt.Errorf("writeback kobo: marshal: %w", err)
	}

	var resp bulkResponse
	path := "/api/v2/assets/" + url.PathEscape(origin.ID) + "/data/bulk/"
	form := url.Values{"payload": {string(body)}}
	if err := k.src.Client(origin).SendForm(ctx, http.MethodPatch, path, form, &resp); err != nil {
		return Status{}, fmt.Errorf("writeback kobo: %w", err)
	}
	if len(resp.Results) == 0 {
		return Status{}, fmt.Errorf("%w: kobo submission %s", ErrSubmissionNotFound, id)
	}
	res := resp.Results[0]
	return Status{Code: res.StatusCode, Detail: res.Message, Fields: fields}, nil
}

package kobo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/rodekruis/qfa/internal/model"
	"github.com/rodekruis/qfa/internal/source"
	"github.com/rodekruis/qfa/internal/source/httpclient"
)

// DefaultEndpoint is the KoboToolbox server used when none is configured.
const DefaultEndpoint = "https://kobo.ifrc.org"

func init() {
	source.Register(model.SystemKobo, func(cfg source.Config) source.Source {
		return New(cfg)
	})
}

// Source reads taxonomies from KoboToolbox form definitions. Each level is a
// select_one question; deeper questions restrict their choices with a
// choice_filter of the form "<column>=${<previous question>}".
type Source struct {
	endpoint string
	cfg      source.Config
}

// New creates a Kobo source.
func New(cfg source.Config) *Source {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Source{endpoint: endpoint, cfg: cfg}
}

// Endpoint returns the server base URL.
func (s *Source) Endpoint() string {
	return s.endpoint
}

// Client returns an authenticated HTTP client for origin. The write-back
// path shares it.
func (s *Source) Client(origin model.Origin) *httpclient.Client {
	opts := []httpclient.Option{httpclient.WithHeader("Authorization", "Token "+origin.Authorization)}
	if s.cfg.Timeout > 0 {
		opts = append(opts, httpclient.WithTimeout(s.cfg.Timeout))
	}
	return httpclient.New(s.endpoint, opts...)
}

type versionInfo struct {
	VersionID         string `json:"version_id"`
	DeployedVersionID string `json:"deployed_version_id"`
	DateModified      string `json:"date_modified"`
}

func (v versionInfo) marker() string {
	switch {
	case v.DeployedVersionID != "":
		return v.DeployedVersionID
	case v.VersionID != "":
		return v.VersionID
	default:
		return v.DateModified
	}
}

type question struct {
	Type         string `json:"type"`
	Name         string `json:"name"`
	AutoName     string `json:"$autoname"`
	ListName     string `json:"select_from_list_name"`
	ChoiceFilter string `json:"choice_filter"`
}

func (q question) name() string {
	if q.Name != "" {
		return q.Name
	}
	return q.AutoName
}

type assetResponse struct {
	versionInfo
	Content *struct {
		Survey  []question       `json:"survey"`
		Choices []map[string]any `json:"choices"`
	} `json:"content"`
}

func assetPath(uid string) string {
	return "/api/v2/assets/" + url.PathEscape(uid) + "/"
}

func (s *Source) getAsset(ctx context.Context, origin model.Origin, dest any) error {
	q := url.Values{}
	q.Set("format", "json")
	err := s.Client(origin).GetJSON(ctx, assetPath(origin.ID), q, dest)
	var apiErr *httpclient.APIError
	if errors.As(err, &apiErr) && apiErr.NotFound() {
		return fmt.Errorf("kobo source: asset %s: %w", origin.ID, source.ErrOriginNotFound)
	}
	if err != nil {
		return fmt.Errorf("kobo source: asset %s: %w", origin.ID, err)
	}
	return nil
}

// Fetch reads the form and projects the choice lists of the level questions
// into source records. The record ID is the choice name.
func (s *Source) Fetch(ctx context.Context, origin model.Origin) (model.Snapshot, error) {
	if len(origin.LevelFields) == 0 {
		return model.Snapshot{}, errors.New("kobo source: no level fields configured")
	}
	var asset assetResponse
	if err := s.getAsset(ctx, origin, &asset); err != nil {
		return model.Snapshot{}, err
	}
	if asset.Content == nil {
		return model.Snapshot{}, fmt.Errorf("kobo source: asset %s has no content: %w", origin.ID, source.ErrOriginNotFound)
	}

	type levelSpec struct {
		list         string
		parentColumn string
	}
	specs := make([]levelSpec, len(origin.LevelFields))
	for i, field := range origin.LevelFields {
		q, ok := findSelectOne(asset.Content.Survey, field)
		if !ok {
			return model.Snapshot{}, fmt.Errorf("kobo source: select_one question %q not found in asset %s", field, origin.ID)
		}
		specs[i].list = q.ListName
		if i > 0 {
			col := parentColumn(q.ChoiceFilter, origin.LevelFields[i-1])
			if col == "" {
				return model.Snapshot{}, fmt.Errorf("kobo source: question %q has no choice_filter on ${%s}", field, origin.LevelFields[i-1])
			}
			specs[i].parentColumn = col
		}
	}

	var records []model.SourceRecord
	for _, choice := range asset.Content.Choices {
		list := stringField(choice, "list_name")
		for i, spec := range specs {
			if list != spec.list {
				continue
			}
			r := model.SourceRecord{
				ID:    stringField(choice, "name"),
				Label: choiceLabel(choice["label"]),
				Level: i + 1,
			}
			if spec.parentColumn != "" {
				r.Parent = stringField(choice, spec.parentColumn)
			}
			records = append(records, r)
		}
	}
	return model.Snapshot{Records: records, Marker: asset.marker()}, nil
}

// Probe reads the version fields of the asset from the asset list, which
// omits the form content. Kobo cannot count choices without downloading the
// form, so Counts is nil.
func (s *Source) Probe(ctx context.Context, origin model.Origin) (model.Probe, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("q", "uid:"+origin.ID)
	q.Set("limit", "1")
	var list struct {
		Results []struct {
			UID string `json:"uid"`
			versionInfo
		} `json:"results"`
	}
	err := s.Client(origin).GetJSON(ctx, "/api/v2/assets/", q, &list)
	var apiErr *httpclient.APIError
	if errors.As(err, &apiErr) && apiErr.NotFound() {
		return model.Probe{}, fmt.Errorf("kobo source: asset %s: %w", origin.ID, source.ErrOriginNotFound)
	}
	if err != nil {
		return model.Probe{}, fmt.Errorf("kobo source: asset %s: %w", origin.ID, err)
	}
	for _, a := range list.Results {
		if a.UID == origin.ID {
			return model.Probe{Marker: a.marker()}, nil
		}
	}
	return model.Probe{}, fmt.Errorf("kobo source: asset %s: %w", origin.ID, source.ErrOriginNotFound)
}

func findSelectOne(survey []question, name string) (question, bool) {
	for _, q := range survey {
		if strings.HasPrefix(q.Type, "select_one") && q.name() == name {
			return q, true
		}
	}
	return question{}, false
}

var andSplit = regexp.MustCompile(`(?i)\s+and\s+`)

// parentColumn returns the choices column compared against ${prev} in a
// choice_filter such as "level1=${q1} and level2=${q2}".
func parentColumn(filter, prev string) string {
	ref := "${" + prev + "}"
	for _, clause := range andSplit.Split(filter, -1) {
		col, val, ok := strings.Cut(clause, "=")
		if !ok {
			continue
		}
		if strings.TrimSpace(val) == ref {
			return strings.TrimSpace(col)
		}
	}
	return ""
}

// choiceLabel returns the first translation of a choice label. Forms with a
// single language export the label as a plain string.
func choiceLabel(v any) string {
	switch l := v.(type) {
	case string:
		return l
	case []any:
		for _, item := range l {
			if s, ok := item.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%g", v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

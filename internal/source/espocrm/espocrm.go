package espocrm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rodekruis/qfa/internal/model"
	"github.com/rodekruis/qfa/internal/source"
	"github.com/rodekruis/qfa/internal/source/httpclient"
)

const pageSize = 200

func init() {
	source.Register(model.SystemEspoCRM, func(cfg source.Config) source.Source {
		return New(cfg)
	})
}

// Source reads taxonomies from EspoCRM entities. Each level is an entity
// whose records link to their parent through the default link field named
// after the parent entity ("Category" gives "categoryId").
type Source struct {
	cfg source.Config
}

// New creates an EspoCRM source. The instance URL comes from each origin.
func New(cfg source.Config) *Source {
	return &Source{cfg: cfg}
}

// LinkField formats an entity name as its default link field, e.g.
// LinkField("FeedbackType", "Id") returns "feedbackTypeId".
func LinkField(entity, suffix string) string {
	r, size := utf8.DecodeRuneInString(entity)
	if r == utf8.RuneError {
		return suffix
	}
	return string(unicode.ToLower(r)) + entity[size:] + suffix
}

// Client returns an API client for the instance named by origin.
func (s *Source) Client(origin model.Origin) *httpclient.Client {
	base := strings.TrimRight(origin.ID, "/")
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	opts := []httpclient.Option{httpclient.WithHeader("X-Api-Key", origin.Authorization)}
	if s.cfg.Timeout > 0 {
		opts = append(opts, httpclient.WithTimeout(s.cfg.Timeout))
	}
	return httpclient.New(base+"/api/v1", opts...)
}

type listResponse struct {
	Total int              `json:"total"`
	List  []map[string]any `json:"list"`
}

func (s *Source) list(ctx context.Context, c *httpclient.Client, entity string, q url.Values) (listResponse, error) {
	var resp listResponse
	err := c.GetJSON(ctx, "/"+url.PathEscape(entity), q, &resp)
	var apiErr *httpclient.APIError
	if errors.As(err, &apiErr) && apiErr.NotFound() {
		return resp, fmt.Errorf("espocrm source: %s: %w", entity, source.ErrOriginNotFound)
	}
	if err != nil {
		return resp, fmt.Errorf("espocrm source: %s: %w", entity, err)
	}
	return resp, nil
}

// Fetch lists every record of every level entity.
func (s *Source) Fetch(ctx context.Context, origin model.Origin) (model.Snapshot, error) {
	if len(origin.LevelFields) == 0 {
		return model.Snapshot{}, errors.New("espocrm source: no level entities configured")
	}
	c := s.Client(origin)

	var snap model.Snapshot
	for i, entity := range origin.LevelFields {
		level := i + 1
		parentField := ""
		fields := []string{"id", "name", "modifiedAt"}
		if i > 0 {
			parentField = LinkField(origin.LevelFields[i-1], "Id")
			fields = append(fields, parentField)
		}

		for offset := 0; ; {
			q := url.Values{}
			q.Set("select", strings.Join(fields, ","))
			q.Set("maxSize", strconv.Itoa(pageSize))
			q.Set("offset", strconv.Itoa(offset))
			q.Set("orderBy", "createdAt")
			q.Set("order", "asc")

			page, err := s.list(ctx, c, entity, q)
			if err != nil {
				return model.Snapshot{}, err
			}
			for _, row := range page.List {
				r := model.SourceRecord{
					ID:         str(row["id"]),
					Label:      str(row["name"]),
					Level:      level,
					ModifiedAt: str(row["modifiedAt"]),
				}
				if parentField != "" {
					r.Parent = str(row[parentField])
				}
				if r.ModifiedAt > snap.Marker {
					snap.Marker = r.ModifiedAt
				}
				snap.Records = append(snap.Records, r)
			}
			offset += len(page.List)
			if len(page.List) == 0 || offset >= page.Total {
				break
			}
		}
	}
	return snap, nil
}

// Probe asks each level for its most recently modified record and its
// total. The marker matches the one Fetch computes; the totals catch
// deletions, which do not move the marker.
func (s *Source) Probe(ctx context.Context, origin model.Origin) (model.Probe, error) {
	c := s.Client(origin)
	p := model.Probe{Counts: make(map[int]int, len(origin.LevelFields))}
	for i, entity := range origin.LevelFields {
		q := url.Values{}
		q.Set("select", "id,modifiedAt")
		q.Set("maxSize", "1")
		q.Set("orderBy", "modifiedAt")
		q.Set("order", "desc")

		page, err := s.list(ctx, c, entity, q)
		if err != nil {
			return model.Probe{}, err
		}
		p.Counts[i+1] = page.Total
		if len(page.List) > 0 {
			if m := str(page.List[0]["modifiedAt"]); m > p.Marker {
				p.Marker = m
			}
		}
	}
	return p, nil
}

func str(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

package writeback

import (
	"context"
	"net/http"

	"github.com/rodekruis/qfa/internal/model"
	"github.com/rodekruis/qfa/internal/source/espocrm"
)

// EspoCRM does not call the CRM. It returns the link field values
// ({link}Id and {link}Name per level) for the caller to apply, since the
// CRM workflow that asked for the classification owns the record update.
type EspoCRM struct{}

// Fields returns the link field values for out. Unchosen levels map to
// empty strings so that stale links are cleared.
func (EspoCRM) Fields(origin model.Origin, out model.Outcome) map[string]string {
	fields := make(map[string]string, 2*len(origin.LevelFields))
	for i, entity := range origin.LevelFields {
		r := out.At(i + 1)
		fields[espocrm.LinkField(entity, "Id")] = r.ID
		fields[espocrm.LinkField(entity, "Name")] = r.Label
	}
	return fields
}

// Write returns the field map without side effects.
func (e EspoCRM) Write(_ context.Context, origin model.Origin, out model.Outcome, _ map[string]any) (Status, error) {
	return Status{Code: http.StatusOK, Fields: e.Fields(origin, out)}, nil
}

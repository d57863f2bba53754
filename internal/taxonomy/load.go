package taxonomy

import (
	"context"
	"fmt"

	"github.com/rodekruis/qfa/internal/model"
	"github.com/rodekruis/qfa/internal/translate"
)

// FromSource projects a source snapshot into a validated Tree. When tr is
// non-nil every distinct label is translated once to produce its canonical
// form; otherwise the canonical form is the label itself.
func FromSource(ctx context.Context, snap model.Snapshot, tr translate.Translator) (*Tree, error) {
	if tr != nil {
		tr = translate.NewCached(tr)
	}
	records := make([]model.TaxonomyRecord, 0, len(snap.Records))
	for _, sr := range snap.Records {
		canonical := sr.Label
		if tr != nil {
			out, err := tr.Translate(ctx, sr.Label)
			if err != nil {
				return nil, fmt.Errorf("taxonomy: canonicalize %q: %w", sr.Label, err)
			}
			canonical = out
		}
		records = append(records, model.TaxonomyRecord{
			ID:             sr.ID,
			Label:          sr.Label,
			LabelCanonical: canonical,
			Level:          sr.Level,
			Parent:         sr.Parent,
		})
	}
	return New(records, snap.Marker)
}

package engine

import (
	"context"

	"github.com/rodekruis/qfa/internal/classifier"
	"github.com/rodekruis/qfa/internal/model"
	"github.com/rodekruis/qfa/internal/taxonomy"
)

// Cascade classifies text top-down through tree. Level 1 chooses among all
// level-1 labels; each deeper level chooses among the children of the
// previous choice. The walk stops early when a level has no candidates and
// never revisits a level. The outcome always has one entry per tree level.
func Cascade(ctx context.Context, text string, tree *taxonomy.Tree, cls classifier.TextClassifier) (model.Outcome, error) {
	out := model.Outcome{Text: text, Levels: make([]model.LevelResult, tree.Levels())}
	for k := range out.Levels {
		out.Levels[k].Level = k + 1
	}

	parent := ""
	for k := 1; k <= tree.Levels(); k++ {
		candidates := tree.LabelsAt(k, parent)
		if len(candidates) == 0 {
			break
		}
		chosen, err := cls.Choose(ctx, text, candidates)
		if err != nil {
			return model.Outcome{}, &Error{Level: k, Op: OpClassify, Err: err}
		}
		rec, err := tree.Resolve(k, parent, chosen)
		if err != nil {
			return model.Outcome{}, &Error{Level: k, Op: OpResolve, Err: err}
		}
		out.Levels[k-1] = model.LevelResult{
			Level:          k,
			LabelCanonical: rec.LabelCanonical,
			Label:          rec.Label,
			ID:             rec.ID,
		}
		parent = rec.ID
	}
	return out, nil
}

package qfa

import (
	"context"
	"fmt"

	"github.com/rodekruis/qfa/internal/cache"
	"github.com/rodekruis/qfa/internal/classifier"
	"github.com/rodekruis/qfa/internal/classifier/zeroshot"
	"github.com/rodekruis/qfa/internal/engine"
	"github.com/rodekruis/qfa/internal/source"
	"github.com/rodekruis/qfa/internal/translate"

	_ "github.com/rodekruis/qfa/internal/source/espocrm"
	_ "github.com/rodekruis/qfa/internal/source/kobo"
)

// QFA classifies feedback against taxonomies owned by origin systems.
type QFA struct {
	engine     *engine.Engine
	store      *cache.Store
	classifier *classifier.Classifier
}

// New opens the cache and loads the classifier. Loading the local model
// takes a moment; create once and reuse.
func New(opts ...Option) (*QFA, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	var backend classifier.Backend = o.backend
	if backend == nil {
		modelPath, vocabPath := resolvePaths(o)
		zs, err := zeroshot.New(classifier.Config{Provider: zeroshot.Provider, ModelPath: modelPath, VocabPath: vocabPath})
		if err != nil {
			return nil, fmt.Errorf("qfa: %w", err)
		}
		backend = zs
	}
	cls := classifier.New(backend)

	copts := cache.DefaultOptions()
	copts.InMemory = o.inMemory
	store, err := cache.Open(o.cacheDir, copts)
	if err != nil {
		cls.Close()
		return nil, fmt.Errorf("qfa: %w", err)
	}

	sources := make(map[string]source.Source)
	for _, system := range source.Systems() {
		ctor, _ := source.Get(system)
		sources[system] = ctor(source.Config{Endpoint: o.endpoints[system], Timeout: o.sourceTimeout})
	}

	var tr translate.Translator
	if o.translator != nil {
		tr = o.translator
	}
	eng := engine.New(store, sources, cls, tr, engine.Config{
		RequestTimeout: o.requestTimeout,
		TranslateText:  o.translateText,
	})
	return &QFA{engine: eng, store: store, classifier: cls}, nil
}

// Classify classifies text against the taxonomy of origin, reloading the
// taxonomy first when the origin reports a change.
func (q *QFA) Classify(ctx context.Context, origin Origin, text string) (Outcome, error) {
	out, err := q.engine.Classify(ctx, origin.internal(), text)
	if err != nil {
		return Outcome{}, err
	}
	return outcomeFromModel(out), nil
}

// ClassifyAll classifies texts against one resolution of the taxonomy.
// It stops at the first error.
func (q *QFA) ClassifyAll(ctx context.Context, origin Origin, texts []string) ([]Outcome, error) {
	s, err := q.engine.Session(ctx, origin.internal())
	if err != nil {
		return nil, err
	}
	outs := make([]Outcome, len(texts))
	for i, text := range texts {
		out, err := s.Classify(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		outs[i] = outcomeFromModel(out)
	}
	return outs, nil
}

// Refresh reloads the taxonomy of origin, replacing the cached copy.
func (q *QFA) Refresh(ctx context.Context, origin Origin) error {
	_, err := q.engine.Refresh(ctx, origin.internal())
	return err
}

// Forget drops the cached taxonomy of origin.
func (q *QFA) Forget(ctx context.Context, origin Origin) error {
	return q.engine.Delete(ctx, origin.internal())
}

// Taxonomy returns the up-to-date labels of origin.
func (q *QFA) Taxonomy(ctx context.Context, origin Origin) ([]Label, error) {
	tree, err := q.engine.Schema(ctx, origin.internal())
	if err != nil {
		return nil, err
	}
	recs := tree.Records()
	labels := make([]Label, len(recs))
	for i, r := range recs {
		labels[i] = Label{ID: r.ID, Label: r.Label, LabelCanonical: r.LabelCanonical, Level: r.Level, Parent: r.Parent}
	}
	return labels, nil
}

// Close releases the model and closes the cache.
func (q *QFA) Close() error {
	cerr := q.classifier.Close()
	if err := q.store.Close(); err != nil {
		return err
	}
	return cerr
}

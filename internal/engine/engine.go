// Package engine resolves the taxonomy for a request, keeps the schema cache
// fresh, and runs the classification cascade.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rodekruis/qfa/internal/cache"
	"github.com/rodekruis/qfa/internal/classifier"
	"github.com/rodekruis/qfa/internal/model"
	"github.com/rodekruis/qfa/internal/source"
	"github.com/rodekruis/qfa/internal/taxonomy"
	"github.com/rodekruis/qfa/internal/translate"
)

// SchemaStore persists taxonomy trees. *cache.Store implements it.
type SchemaStore interface {
	Load(ctx context.Context, key cache.Key) (*taxonomy.Tree, error)
	Save(ctx context.Context, key cache.Key, tree *taxonomy.Tree) error
	Delete(ctx context.Context, key cache.Key) error
}

// Config controls request handling.
type Config struct {
	// RequestTimeout bounds one Classify call, cascade included. Zero
	// disables it.
	RequestTimeout time.Duration
	// TranslateText translates the feedback text before classifying it.
	// Requires a translator.
	TranslateText bool
}

// Engine is safe for concurrent use. It holds no per-request state.
type Engine struct {
	store      SchemaStore
	sources    map[string]source.Source
	classifier classifier.TextClassifier
	translator translate.Translator // nil disables translation
	cfg        Config
	refreshes  singleflight.Group
}

// New creates an Engine. sources is keyed by origin system; translator may
// be nil.
func New(store SchemaStore, sources map[string]source.Source, cls classifier.TextClassifier, tr translate.Translator, cfg Config) *Engine {
	return &Engine{
		store:      store,
		sources:    sources,
		classifier: cls,
		translator: tr,
		cfg:        cfg,
	}
}

func (e *Engine) source(origin model.Origin) (source.Source, error) {
	src, ok := e.sources[origin.System]
	if !ok {
		return nil, fmt.Errorf("unsupported origin system %q", origin.System)
	}
	return src, nil
}

// fail attaches the origin to err, keeping the level and op of a cascade
// error.
func fail(origin model.Origin, op string, err error) error {
	var ee *Error
	if errors.As(err, &ee) {
		return &Error{System: origin.System, Origin: origin.ID, Level: ee.Level, Op: ee.Op, Err: ee.Err}
	}
	return &Error{System: origin.System, Origin: origin.ID, Op: op, Err: err}
}

// Schema returns an up-to-date tree for origin. A cache miss or a stale
// entry is refreshed from the source and saved.
func (e *Engine) Schema(ctx context.Context, origin model.Origin) (*taxonomy.Tree, error) {
	src, err := e.source(origin)
	if err != nil {
		return nil, fail(origin, OpLoad, err)
	}
	key := cache.KeyFor(origin.System, origin.ID)

	tree, err := e.store.Load(ctx, key)
	if errors.Is(err, cache.ErrNotFound) {
		slog.Info("schema not cached, loading from source", "system", origin.System, "origin", key.Origin)
		return e.refresh(ctx, key, origin, src)
	}
	if err != nil {
		return nil, fail(origin, OpLoad, err)
	}

	if !tree.BuiltFrom(origin.LevelFields) {
		slog.Info("schema cached for other level fields, reloading from source",
			"system", origin.System, "origin", key.Origin,
			"cached_fields", tree.LevelFields(), "requested_fields", origin.LevelFields)
		return e.refresh(ctx, key, origin, src)
	}

	probe, err := src.Probe(ctx, origin)
	if err != nil {
		return nil, fail(origin, OpProbe, err)
	}
	if !cache.IsStale(tree, probe) {
		return tree, nil
	}
	slog.Info("schema outdated, reloading from source",
		"system", origin.System, "origin", key.Origin,
		"cached_marker", tree.VersionMarker(), "source_marker", probe.Marker)
	return e.refresh(ctx, key, origin, src)
}

// Refresh fetches the taxonomy of origin and replaces the cached copy.
func (e *Engine) Refresh(ctx context.Context, origin model.Origin) (*taxonomy.Tree, error) {
	src, err := e.source(origin)
	if err != nil {
		return nil, fail(origin, OpFetch, err)
	}
	return e.refresh(ctx, cache.KeyFor(origin.System, origin.ID), origin, src)
}

// refresh collapses concurrent refreshes of one key and level fields within
// this process.
// The shared fetch outlives the caller that started it, so each caller
// waits on its own context only.
func (e *Engine) refresh(ctx context.Context, key cache.Key, origin model.Origin, src source.Source) (*taxonomy.Tree, error) {
	flight := key.String() + "|" + strings.Join(origin.LevelFields, ",")
	ch := e.refreshes.DoChan(flight, func() (any, error) {
		rctx := context.WithoutCancel(ctx)
		if e.cfg.RequestTimeout > 0 {
			var cancel context.CancelFunc
			rctx, cancel = context.WithTimeout(rctx, e.cfg.RequestTimeout)
			defer cancel()
		}
		return e.load(rctx, key, origin, src)
	})
	select {
	case <-ctx.Done():
		return nil, fail(origin, OpFetch, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*taxonomy.Tree), nil
	}
}

// load fetches, builds and saves the tree of origin.
func (e *Engine) load(ctx context.Context, key cache.Key, origin model.Origin, src source.Source) (*taxonomy.Tree, error) {
	snap, err := src.Fetch(ctx, origin)
	if err != nil {
		return nil, fail(origin, OpFetch, err)
	}
	tree, err := taxonomy.FromSource(ctx, snap, e.translator)
	if err != nil {
		return nil, fail(origin, OpBuild, err)
	}
	tree = tree.WithLevelFields(origin.LevelFields)
	if err := e.store.Save(ctx, key, tree); err != nil {
		return nil, fail(origin, OpSave, err)
	}
	slog.Info("schema saved", "system", origin.System, "origin", key.Origin,
		"levels", tree.Levels(), "records", tree.Len(), "marker", tree.VersionMarker())
	return tree, nil
}

// Delete removes the cached taxonomy of origin. Deleting an uncached origin
// is not an error.
func (e *Engine) Delete(ctx context.Context, origin model.Origin) error {
	if err := e.store.Delete(ctx, cache.KeyFor(origin.System, origin.ID)); err != nil {
		return fail(origin, OpDelete, err)
	}
	return nil
}

// Classify resolves the taxonomy of origin and classifies text against it.
func (e *Engine) Classify(ctx context.Context, origin model.Origin, text string) (model.Outcome, error) {
	if e.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.RequestTimeout)
		defer cancel()
	}
	s, err := e.Session(ctx, origin)
	if err != nil {
		return model.Outcome{}, err
	}
	return s.classify(ctx, text)
}

// Session binds one resolved taxonomy so that many texts can be classified
// against it without re-checking the cache.
type Session struct {
	engine *Engine
	origin model.Origin
	tree   *taxonomy.Tree
}

// Session resolves the taxonomy of origin once.
func (e *Engine) Session(ctx context.Context, origin model.Origin) (*Session, error) {
	tree, err := e.Schema(ctx, origin)
	if err != nil {
		return nil, err
	}
	return &Session{engine: e, origin: origin, tree: tree}, nil
}

// Tree returns the taxonomy the session classifies against.
func (s *Session) Tree() *taxonomy.Tree {
	return s.tree
}

// Classify classifies one text, applying the engine's request timeout.
func (s *Session) Classify(ctx context.Context, text string) (model.Outcome, error) {
	if s.engine.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.engine.cfg.RequestTimeout)
		defer cancel()
	}
	return s.classify(ctx, text)
}

func (s *Session) classify(ctx context.Context, text string) (model.Outcome, error) {
	e := s.engine
	input := text
	if e.cfg.TranslateText && e.translator != nil {
		translated, err := e.translator.Translate(ctx, text)
		if err != nil {
			return model.Outcome{}, fail(s.origin, OpTranslate, err)
		}
		input = translated
	}

	out, err := Cascade(ctx, input, s.tree, e.classifier)
	if err != nil {
		err = fail(s.origin, OpClassify, err)
		if errors.Is(err, taxonomy.ErrLabelNotFound) {
			slog.Error("classifier answer not in taxonomy", "system", s.origin.System, "origin", s.origin.ID, "error", err)
		}
		return model.Outcome{}, err
	}
	out.Text = text
	return out, nil
}

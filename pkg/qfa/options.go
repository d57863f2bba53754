package qfa

import (
	"context"
	"path/filepath"
	"time"
)

// Backend picks one of candidates for text. Implement it to plug in a
// classifier of your own.
type Backend interface {
	Choose(ctx context.Context, text string, candidates []string) (string, error)
}

// Translator translates text into the working language.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

type options struct {
	cacheDir       string
	inMemory       bool
	modelDir       string
	modelPath      string
	vocabPath      string
	backend        Backend
	translator     Translator
	translateText  bool
	endpoints      map[string]string
	requestTimeout time.Duration
	sourceTimeout  time.Duration
}

// Option configures a QFA instance.
type Option func(*options)

// WithCacheDir sets the directory holding the taxonomy cache. Default: ".qfa".
func WithCacheDir(dir string) Option {
	return func(o *options) { o.cacheDir = dir }
}

// WithInMemoryCache keeps taxonomies for the lifetime of the instance only.
func WithInMemoryCache() Option {
	return func(o *options) { o.inMemory = true }
}

// WithModelDir sets the directory holding nli.onnx and vocab.txt for the
// local entailment classifier.
func WithModelDir(dir string) Option {
	return func(o *options) { o.modelDir = dir }
}

// WithModelPaths sets explicit model and vocabulary paths.
func WithModelPaths(model, vocab string) Option {
	return func(o *options) {
		o.modelPath = model
		o.vocabPath = vocab
	}
}

// WithBackend replaces the local model with b.
func WithBackend(b Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithTranslator translates taxonomy labels at load time. With text set,
// feedback texts are translated too before classification.
func WithTranslator(t Translator, text bool) Option {
	return func(o *options) {
		o.translator = t
		o.translateText = text
	}
}

// WithSourceEndpoint overrides the server of an origin system, e.g. a
// self-hosted KoboToolbox.
func WithSourceEndpoint(system, url string) Option {
	return func(o *options) { o.endpoints[system] = url }
}

// WithTimeouts bounds one Classify call and each origin request.
func WithTimeouts(request, source time.Duration) Option {
	return func(o *options) {
		o.requestTimeout = request
		o.sourceTimeout = source
	}
}

func defaultOptions() options {
	return options{
		cacheDir:       ".qfa",
		endpoints:      map[string]string{},
		requestTimeout: 2 * time.Minute,
		sourceTimeout:  30 * time.Second,
	}
}

// resolvePaths returns the model and vocab paths. Explicit paths take
// precedence over modelDir.
func resolvePaths(o options) (model, vocab string) {
	if o.modelPath != "" {
		return o.modelPath, o.vocabPath
	}
	dir := o.modelDir
	if dir == "" {
		dir = "models"
	}
	return filepath.Join(dir, "nli.onnx"), filepath.Join(dir, "vocab.txt")
}

package main

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rodekruis/qfa/internal/cache"
	"github.com/rodekruis/qfa/internal/classifier"
	"github.com/rodekruis/qfa/internal/config"
	"github.com/rodekruis/qfa/internal/engine"
	"github.com/rodekruis/qfa/internal/logging"
	"github.com/rodekruis/qfa/internal/model"
	"github.com/rodekruis/qfa/internal/source"
	"github.com/rodekruis/qfa/internal/translate"

	_ "github.com/rodekruis/qfa/internal/classifier/gemini"
	_ "github.com/rodekruis/qfa/internal/classifier/openai"
	_ "github.com/rodekruis/qfa/internal/classifier/zeroshot"
	_ "github.com/rodekruis/qfa/internal/source/espocrm"
	_ "github.com/rodekruis/qfa/internal/source/kobo"
)

// app holds the dependencies a command runs with.
type app struct {
	cfg        config.Config
	store      *cache.Store
	classifier *classifier.Classifier
	engine     *engine.Engine
}

// loadConfig reads the config named by --config, applies --log-level and
// initializes logging.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	logging.Init(cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))
	return cfg, nil
}

// openApp wires the engine. The classifier backend is only loaded when
// withClassifier is set, since schema commands never use it.
func openApp(cmd *cobra.Command, withClassifier bool) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	opts := cache.DefaultOptions()
	opts.EnableWAL = cfg.Cache.WAL
	store, err := cache.Open(cfg.Cache.Dir, opts)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, store: store}

	sources := make(map[string]source.Source)
	for _, system := range source.Systems() {
		ctor, err := source.Get(system)
		if err != nil {
			store.Close()
			return nil, err
		}
		sc := cfg.Sources.For(system)
		sources[system] = ctor(source.Config{Endpoint: sc.Endpoint, Timeout: sc.Timeout})
	}

	var tr translate.Translator
	if cfg.Translate.Enabled || cfg.Translate.Text {
		tr = translate.NewMicrosoft(translate.Config{
			Endpoint: cfg.Translate.Endpoint,
			Key:      cfg.Translate.Key(),
			Region:   cfg.Translate.Region,
			To:       cfg.Translate.To,
			Timeout:  cfg.Translate.Timeout,
		})
	}

	if withClassifier {
		a.classifier, err = classifier.Open(classifierConfig(cfg))
		if err != nil {
			store.Close()
			return nil, err
		}
		slog.Debug("classifier ready", "provider", cfg.Classifier.Provider)
	}

	var cls classifier.TextClassifier
	if a.classifier != nil {
		cls = a.classifier
	}
	a.engine = engine.New(store, sources, cls, tr, engine.Config{
		RequestTimeout: cfg.Engine.RequestTimeout,
		TranslateText:  cfg.Translate.Text,
	})
	return a, nil
}

func classifierConfig(cfg config.Config) classifier.Config {
	c := cfg.Classifier
	return classifier.Config{
		Provider:           c.Provider,
		Model:              c.Model,
		ModelPath:          c.ModelPath,
		VocabPath:          c.VocabPath,
		LibPath:            c.LibPath,
		EntailmentIndex:    c.EntailmentIndex,
		HypothesisTemplate: c.HypothesisTemplate,
		BaseURL:            c.BaseURL,
		APIKey:             c.APIKey(),
		Timeout:            c.Timeout,
	}
}

func (a *app) Close() error {
	var errs []error
	if a.classifier != nil {
		errs = append(errs, a.classifier.Close())
	}
	errs = append(errs, a.store.Close())
	return errors.Join(errs...)
}

// originFlags are shared by every command that addresses one origin.
type originFlags struct {
	system    string
	id        string
	token     string
	levels    []string
	textField string
}

func (f *originFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.system, "system", model.SystemKobo, "Origin system (kobo, espocrm)")
	cmd.Flags().StringVar(&f.id, "origin", "", "Kobo asset uid or EspoCRM instance URL")
	cmd.Flags().StringVar(&f.token, "token", "", "Origin API token (default $QFA_ORIGIN_TOKEN)")
	cmd.Flags().StringSliceVar(&f.levels, "levels", nil, "Question or entity name per level, level 1 first")
	cmd.Flags().StringVar(&f.textField, "text-field", "", "Payload field holding the feedback text")
	_ = cmd.MarkFlagRequired("origin")
}

func (f *originFlags) origin() (model.Origin, error) {
	if strings.TrimSpace(f.id) == "" {
		return model.Origin{}, errors.New("--origin is required")
	}
	token := f.token
	if token == "" {
		token = os.Getenv("QFA_ORIGIN_TOKEN")
	}
	return model.Origin{
		System:        strings.ToLower(f.system),
		ID:            f.id,
		Authorization: token,
		LevelFields:   f.levels,
		TextField:     f.textField,
	}, nil
}

// requireLevels rejects origins that cannot be fetched without level names.
func requireLevels(o model.Origin) error {
	if len(o.LevelFields) == 0 {
		return errors.New("--levels is required")
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

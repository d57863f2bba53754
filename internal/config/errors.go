package config

import "errors"

// Validation errors returned by Config.Validate. Check with errors.Is.
var (
	ErrUnknownProvider   = errors.New("config: unknown classifier provider")
	ErrModelPathRequired = errors.New("config: zeroshot provider needs model_path and vocab_path")
	ErrAPIKeyRequired    = errors.New("config: generative provider needs an API key")
	ErrInvalidLogFormat  = errors.New("config: log format must be json or text")
	ErrInvalidVerbosity  = errors.New("config: output verbosity must be minimal, standard or full")
	ErrInvalidWorkers    = errors.New("config: engine workers must be positive")
	ErrInvalidTimeout    = errors.New("config: timeouts must be non-negative")
	ErrTranslateKey      = errors.New("config: translation enabled without a translator key")
)

package model

import "log/slog"

type openOptions struct {
	logger *slog.Logger
}

// OpenOption configures Artifact.Open.
type OpenOption func(*openOptions)

// WithLogger sets the classifier's logger.
func WithLogger(logger *slog.Logger) OpenOption {
	return func(o *openOptions) {
		o.logger = logger
	}
}

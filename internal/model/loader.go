package model

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/diabetes-risk-server/internal/domain"
)

// ErrModelDisabled is returned by Load when model.source is "none".
var ErrModelDisabled = errors.New("model disabled by configuration")

// Loader binds the configured classifier once per process. The outcome of
// the first attempt, success or failure, is final.
type Loader struct {
	cfg    domain.ModelConfig
	logger *logrus.Logger

	once       sync.Once
	classifier Classifier
	artifact   *Artifact
	err        error
}

// NewLoader creates a loader for the model configuration.
func NewLoader(cfg domain.ModelConfig, logger *logrus.Logger) *Loader {
	return &Loader{cfg: cfg, logger: logger}
}

// Load returns the bound classifier, loading it on the first call.
// Concurrent callers block until the first attempt completes.
func (l *Loader) Load(ctx context.Context) (Classifier, error) {
	l.once.Do(func() {
		l.classifier, l.err = l.load(ctx)
		l.report()
	})
	return l.classifier, l.err
}

// Artifact returns the parsed artifact for file-backed models.
func (l *Loader) Artifact() *Artifact {
	return l.artifact
}

func (l *Loader) load(ctx context.Context) (Classifier, error) {
	switch l.cfg.Source {
	case domain.ModelSourceNone:
		return nil, ErrModelDisabled

	case domain.ModelSourceRemote:
		remote := NewRemoteClassifier(l.cfg.Remote, l.logger)
		if err := remote.Ping(ctx); err != nil {
			return nil, err
		}
		return remote, nil

	case domain.ModelSourceFile, "":
		artifact, err := LoadArtifact(l.cfg.Path)
		if err != nil {
			return nil, err
		}
		classifier, err := artifact.Classifier()
		if err != nil {
			return nil, fmt.Errorf("build classifier: %w", err)
		}
		l.artifact = artifact
		return classifier, nil

	default:
		return nil, fmt.Errorf("unknown model source %q", l.cfg.Source)
	}
}

func (l *Loader) report() {
	fields := logrus.Fields{"source": l.cfg.Source}
	switch {
	case l.err == nil:
		fields["model"] = l.classifier.Name()
		l.logger.WithFields(fields).Info("Classifier loaded")
	case errors.Is(l.err, ErrModelDisabled):
		l.logger.WithFields(fields).Info("Classifier disabled, using fallback scoring")
	default:
		fields["error"] = l.err.Error()
		l.logger.WithFields(fields).Warn("Classifier failed to load, using fallback scoring for the process lifetime")
	}
}

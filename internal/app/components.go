package app

import (
	"fmt"

	"github.com/MrSnakeDoc/shipcheck/internal/config"
	"github.com/MrSnakeDoc/shipcheck/internal/domain"
	"github.com/MrSnakeDoc/shipcheck/internal/logger"
	"github.com/MrSnakeDoc/shipcheck/internal/metrics"
	"github.com/MrSnakeDoc/shipcheck/internal/probe"
	"github.com/MrSnakeDoc/shipcheck/internal/remote"
	"github.com/MrSnakeDoc/shipcheck/internal/remote/shell"
	"github.com/MrSnakeDoc/shipcheck/internal/remote/ssm"
	"github.com/MrSnakeDoc/shipcheck/internal/sources/targets"
	"github.com/MrSnakeDoc/shipcheck/internal/verifier"
)

// localInstance is the instance id given to the env target on the shell channel.
const localInstance = "local"

func newChannel(cfg *config.Config, log logger.Logger) (remote.Channel, error) {
	switch remote.Kind(cfg.Channel) {
	case remote.KindShell:
		return shell.New(log.With(logger.String("channel", string(remote.KindShell)))), nil
	case remote.KindSSM:
		ch, err := ssm.New(ssm.Config{
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			CommandTimeout:  cfg.CommandTimeout,
			WaitDelay:       cfg.WaitDelay,
		}, log.With(logger.String("channel", string(remote.KindSSM))))
		if err != nil {
			return nil, err
		}
		return ch, nil
	default:
		return nil, fmt.Errorf("unknown channel %q", cfg.Channel)
	}
}

// loadTargets reads file when set, otherwise builds one target from cfg.
func loadTargets(cfg *config.Config, file string) ([]domain.Target, error) {
	if file != "" {
		list, err := targets.NewLoader(file).Load()
		if err != nil {
			return nil, fmt.Errorf("load targets from %s: %w", file, err)
		}
		return list, nil
	}

	instance := cfg.InstanceID
	if instance == "" && remote.Kind(cfg.Channel) == remote.KindShell {
		instance = localInstance
	}
	t := domain.Target{
		Name:         cfg.TargetName,
		InstanceID:   instance,
		Container:    cfg.Container,
		Port:         cfg.Port,
		ExternalHost: cfg.ExternalHost,
	}.WithDefaults(cfg.HealthPath)

	if err := targets.Validate(t); err != nil {
		return nil, fmt.Errorf("target from environment: %w", err)
	}
	return []domain.Target{t}, nil
}

func newVerifier(cfg *config.Config, ch remote.Channel, log logger.Logger, m *metrics.Metrics) *verifier.Verifier {
	return verifier.New(ch, log, verifier.Options{
		MaxRetries:        cfg.MaxRetries,
		Delay:             cfg.RetryDelay,
		StabilityChecks:   cfg.StabilityChecks,
		StabilityInterval: cfg.StabilityInterval,
		FailOnUnstable:    cfg.FailOnUnstable,
	},
		verifier.WithProber(probe.New(cfg.ProbeTimeout)),
		verifier.WithMetrics(m),
	)
}

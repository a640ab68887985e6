package backend

import (
	"context"
	"fmt"

	"moneymanager/internal/api"
	"moneymanager/internal/config"
	"moneymanager/internal/ledger/memory"
	"moneymanager/internal/log"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	return &DefaultFactory{logger: log.OrDiscard(logger).WithComponent(log.ComponentBackend)}
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	t := Type(appConfig.DataBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	loc, err := appConfig.Location()
	if err != nil {
		return Config{}, fmt.Errorf("resolve timezone: %w", err)
	}
	return Config{
		Type:          t,
		BaseURL:       appConfig.APIBaseURL,
		Timeout:       appConfig.APITimeout,
		DataDirectory: appConfig.DataDir,
		Location:      loc,
	}, nil
}

func (f *DefaultFactory) CreateBackend(_ context.Context, config Config) (*Result, error) {
	switch config.Type {
	case RemoteBackend:
		return f.createRemoteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createRemoteBackend(config Config) (*Result, error) {
	client, err := api.New(config.BaseURL, config.Timeout, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize API client: %w", err)
	}
	f.logger.Info("Initialized remote ledger", "base_url", config.BaseURL, "timeout", config.Timeout)
	return &Result{Backend: client}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*Result, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	var opts []memory.Option
	if config.Location != nil {
		opts = append(opts, memory.WithLocation(config.Location))
	}
	store := memory.NewFromFiles(dataDir, opts...)
	f.logger.Warn("Using in-memory ledger; data is lost on restart", "data_directory", dataDir)
	return &Result{Backend: store}, nil
}

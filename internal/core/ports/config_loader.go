package ports

import "go.trai.ch/isorun/internal/core/domain"

// ConfigLoader reads the optional configuration file that supplies
// defaults for the remote, cache directory, and cache policy.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load searches upward from cwd for a config file. A missing file is
	// not an error; it yields nil.
	Load(cwd string) (*domain.Config, error)
}

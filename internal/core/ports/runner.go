package ports

import (
	"context"

	"go.trai.ch/isorun/internal/core/domain"
)

// Runner executes a manifest's command inside a materialized scratch
// directory.
//
//go:generate mockgen -source=runner.go -destination=mocks/mock_runner.go -package=mocks
type Runner interface {
	// Run spawns the command with the manifest's working directory and
	// waits for it. It returns the child's exit code. The scratch
	// directory is removed on every return path.
	Run(ctx context.Context, manifest *domain.Manifest, scratchDir string) (int, error)
}

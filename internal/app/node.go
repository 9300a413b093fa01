package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/isorun/internal/adapters/cas"
	"go.trai.ch/isorun/internal/adapters/config"
	"go.trai.ch/isorun/internal/adapters/logger"
	"go.trai.ch/isorun/internal/adapters/remote"
	"go.trai.ch/isorun/internal/adapters/shell"
	"go.trai.ch/isorun/internal/core/ports"
	"go.trai.ch/isorun/internal/engine/materializer"
)

// Components bundles the resolved application object graph for the CLI.
type Components struct {
	App    *App
	Logger ports.Logger
}

// NodeID is the unique identifier for the application Graft node.
const NodeID graft.ID = "app"

func init() {
	graft.Register(graft.Node[*Components]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			remote.NodeID,
			cas.NodeID,
			materializer.NodeID,
			shell.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			loader, err := graft.Dep[ports.ConfigLoader](ctx)
			if err != nil {
				return nil, err
			}
			fetcher, err := graft.Dep[ports.Fetcher](ctx)
			if err != nil {
				return nil, err
			}
			factory, err := graft.Dep[*cas.Factory](ctx)
			if err != nil {
				return nil, err
			}
			mat, err := graft.Dep[*materializer.Materializer](ctx)
			if err != nil {
				return nil, err
			}
			runner, err := graft.Dep[ports.Runner](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return &Components{
				App:    New(loader, fetcher, factory, mat, runner, log),
				Logger: log,
			}, nil
		},
	})
}

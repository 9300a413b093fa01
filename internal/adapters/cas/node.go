package cas

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/isorun/internal/adapters/logger"
	"go.trai.ch/isorun/internal/adapters/remote"
	"go.trai.ch/isorun/internal/core/ports"
)

// NodeID is the unique identifier for the store factory Graft node.
const NodeID graft.ID = "adapter.store_factory"

func init() {
	graft.Register(graft.Node[*Factory]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{remote.NodeID, logger.NodeID},
		Run: func(ctx context.Context) (*Factory, error) {
			fetcher, err := graft.Dep[ports.Fetcher](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewFactory(fetcher, log), nil
		},
	})
}

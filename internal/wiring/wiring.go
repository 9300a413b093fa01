// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/isorun/internal/adapters/cas"
	_ "go.trai.ch/isorun/internal/adapters/config"
	_ "go.trai.ch/isorun/internal/adapters/logger"
	_ "go.trai.ch/isorun/internal/adapters/remote"
	_ "go.trai.ch/isorun/internal/adapters/shell"
	// Register app and engine nodes.
	_ "go.trai.ch/isorun/internal/app"
	_ "go.trai.ch/isorun/internal/engine/materializer"
)

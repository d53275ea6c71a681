package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wydtm/tmsrv/internal/config"
	"github.com/wydtm/tmsrv/internal/persist"
)

// connectDB loads the same config file the server itself reads and
// opens a direct pool connection, so admin commands work against a
// deployment's database independent of whether the server process is
// currently running.
func connectDB(cfgPath string) (*persist.DB, func(), error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	log := zap.NewNop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return nil, nil, fmt.Errorf("connect db: %w", err)
	}
	return db, func() { db.Pool.Close() }, nil
}

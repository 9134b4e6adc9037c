// Command migrate applies backend schemas and runs the one-shot copy jobs
// that feed Neo4j and Elasticsearch from Postgres.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"eli-dashboard/internal/util"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		util.Sync()
		os.Exit(1)
	}
	util.Sync()
}

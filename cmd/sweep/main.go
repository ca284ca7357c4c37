// Command sweep runs one reconciliation pass and prints its summary as
// JSON. It is the operator-initiated counterpart of the daemon's scheduled
// sweep.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/campusshare/campusshare/internal/server"
	"github.com/campusshare/campusshare/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(ctx, cfg)

	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

	summary := app.SweepNow(ctx)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

}

package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/worktrack/internal/ctl"
	"github.com/dmitrijs2005/worktrack/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app := ctl.NewApp(cfg, os.Stdin, os.Stdout)

	if err := app.Run(ctx, os.Args[1:]); err != nil {
		log.Fatalf("%v", err)
	}

}

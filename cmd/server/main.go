package main

import (
	"context"
	"log"

	"github.com/custodia-project/custodia/internal/server"
	"github.com/custodia-project/custodia/internal/server/config"
)

func main() {
	cfg := config.LoadConfig()

	app := server.NewApp(cfg)
	if err := app.Run(context.Background()); err != nil {
		log.Fatal(err)
	}
}

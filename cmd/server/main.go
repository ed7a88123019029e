package main

import (
	"go.uber.org/fx"

	"github.com/demoforge/demoforge/internal/bootstrap"
	"github.com/demoforge/demoforge/internal/storage/pg"
)

func main() {
	fx.New(
		fx.Provide(
			bootstrap.NewLogger,
			bootstrap.NewConfig,
			pg.NewDatabase,
			bootstrap.NewDemoRepository,
			bootstrap.NewVercelClient,
			bootstrap.NewCodegenClient,
			bootstrap.NewProvisionService,
			bootstrap.NewDeprovisionService,
			bootstrap.NewAPIHandlers,
			bootstrap.NewRouter,
		),
		fx.Invoke(
			bootstrap.StartServer,
		),
	).Run()
}

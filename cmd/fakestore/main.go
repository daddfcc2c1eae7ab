package main

import (
	"context"

	"github.com/niksmo/fakestore/config"
	"github.com/niksmo/fakestore/internal/app"
	"github.com/niksmo/fakestore/pkg/sigctx"
)

func main() {
	sigCtx, closeApp := sigctx.NotifyContext()
	defer closeApp()

	cfg := config.Load()
	cfg.Print()

	storefront := app.New(sigCtx, cfg)

	storefront.Run(closeApp)

	<-sigCtx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	storefront.Close(ctx)
}

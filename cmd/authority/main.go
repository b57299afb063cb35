package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/shopauth/internal/authority"
	"github.com/dmitrijs2005/shopauth/internal/authority/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := authority.NewApp(ctx, cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}

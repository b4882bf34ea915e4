package main

import (
	"log"
	"os"

	"github.com/dylanreedx/bite/config"
	"github.com/dylanreedx/bite/logger"
	"github.com/dylanreedx/bite/routes"
)

func main() {
	config.InitDB()

	zlog, err := logger.New(os.Getenv("APP_ENV"))
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync()

	r := routes.SetupRouter(zlog)
	if err := r.Run(":8080"); err != nil {
		zlog.Fatal("server stopped", "error", err)
	}
}

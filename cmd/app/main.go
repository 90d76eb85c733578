package main

import (
	"hotelier/config"
	"hotelier/di"
	"hotelier/shared/logger"
)

func main() {
	cfg := config.Get()

	logger.InitLogger()

	logger.SetLogLevel(cfg)

	http := di.InitializeService()
	http.Serve()
}

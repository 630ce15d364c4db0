package main

import (
	"flag"

	"github.com/lachlan2k/malaria-dash/internal/config"
	"github.com/lachlan2k/malaria-dash/internal/webserver"
)

func main() {
	confPath := flag.String("config", "config.toml", "Path to config file")
	flag.Parse()

	server := webserver.New()
	logger := server.Logger()

	conf, err := config.LoadFromTomlFileAndValidate(*confPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	if err := server.Run(conf); err != nil {
		logger.Fatalf("Dashboard stopped: %v", err)
	}
}

package main

import (
	"context"
	"os"

	"auportal-backend/lib/configutil"
	scraper "auportal-backend/lib/scrapers/auportal"
	"auportal-backend/lib/serviceutil"
	"auportal-backend/lib/telemetry"
	auportal "auportal-backend/services/auportal"
	"auportal-backend/services/auportal/server"
)

type PortalConfig struct {
	BaseUrl string `json:"base_url"`
}

type Config struct {
	Port    int          `json:"port"`
	Verbose bool         `json:"verbose"`
	Portal  PortalConfig `json:"portal"`
}

func main() {
	ctx := serviceutil.SignalContext()

	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil && !os.IsNotExist(err) {
		serviceutil.Fatal("failed to read config", err)
	}
	if config.Port == 0 {
		config.Port = 8330
	}
	if config.Portal.BaseUrl == "" {
		config.Portal.BaseUrl = "http://coe1.annauniv.edu"
	}

	telemetry.InitSlog(config.Verbose)
	t, err := telemetry.SetupFromEnv(ctx, "auportal")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer t.Shutdown(context.Background())

	client, err := scraper.NewClient(ctx, scraper.ClientOptions{
		BaseUrl: config.Portal.BaseUrl,
	})
	if err != nil {
		serviceutil.Fatal("failed to create portal client", err)
	}

	service := auportal.NewService(client, auportal.NewStore())
	go serviceutil.StartHttpServer(config.Port, server.NewRouter(service))

	<-ctx.Done()
}

package main

import (
	"log"

	"github.com/marktr/adsbot/bot"
	corecmd "github.com/marktr/adsbot/core/cmd"
	coreconfig "github.com/marktr/adsbot/core/config"
	"github.com/marktr/adsbot/core/logger"
)

type configCarrier struct {
	cfg *coreconfig.Config
}

func (c *configCarrier) CoreConfig() *coreconfig.Config { return c.cfg }

func main() {
	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			cfg, err := coreconfig.Load(path)
			if err != nil {
				return nil, err
			}
			if err := logger.InitLogger(cfg); err != nil {
				return nil, err
			}
			return &configCarrier{cfg: cfg}, nil
		},
		Bootstrap: func(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			return bot.NewApp(carrier.CoreConfig())
		},
	})
	if err != nil {
		log.Fatalf("adsbot: %v", err)
	}
}

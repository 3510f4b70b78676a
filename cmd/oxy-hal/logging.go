package main

import (
	"github.com/Carmen-Shannon/oxy-hal/config"
	"github.com/Carmen-Shannon/oxy-hal/log"
	"github.com/urfave/cli"
)

var logger = log.New("oxy-hal")

func setupLogging(ctx *cli.Context) {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
}

// loadConfig reads the --config file of a command, or returns the defaults when the flag is not set.
func loadConfig(ctx *cli.Context) (config.Config, error) {
	path := ctx.String("config")
	if path == "" {
		return config.Default(), nil
	}
	logger.Infof("loading configuration from %s", path)
	return config.Load(path)
}

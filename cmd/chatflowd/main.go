package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/fx"

	"github.com/geovannymcode/chatflow-client/internal/config"
	"github.com/geovannymcode/chatflow-client/internal/daemon"
)

func main() {
	configFlag := flag.String("config", "", "config file path (default ~/.chatflow/config.toml)")
	flag.Parse()

	configPath := *configFlag
	if configPath == "" {
		configPath = config.DefaultPath()
	}
	if _, err := config.Load(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(daemon.Params{ConfigPath: configPath}),
	)

	app.Run()
}

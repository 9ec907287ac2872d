// Command voicegate serves the speech recognition and synthesis broker.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/kbukum/voicegate/app"
	"github.com/kbukum/voicegate/config"
	"github.com/kbukum/voicegate/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	configFile := flag.String("config", "", "path to the YAML configuration file")
	envFile := flag.String("env", "", "path to a .env file")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get().String())
		return 0
	}

	var opts []config.LoaderOption
	if *configFile != "" {
		opts = append(opts, config.WithConfigFile(*configFile))
	}
	if *envFile != "" {
		opts = append(opts, config.WithEnvFile(*envFile))
	}

	cfg := &app.Config{}
	if err := config.LoadConfig("voicegate", cfg, opts...); err != nil {
		fmt.Fprintf(os.Stderr, "voicegate: %v\n", err)
		return 1
	}
	if cfg.Version == "" {
		cfg.Version = version.Get().Version
	}

	svc, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voicegate: %v\n", err)
		return 1
	}
	if err := svc.Run(context.Background()); err != nil {
		svc.App.Logger.Error("voicegate stopped with error", map[string]interface{}{"error": err.Error()})
		return 1
	}
	return 0
}

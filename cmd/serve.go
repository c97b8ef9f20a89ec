package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"voisia/internal/catalog"
	"voisia/internal/command"
	"voisia/internal/config"
	"voisia/internal/credentials"
	"voisia/internal/logger"
	"voisia/internal/provider"
	"voisia/internal/provider/anthropic"
	"voisia/internal/provider/openai"
	"voisia/internal/server"
)

const serveUsage = `Usage:
  voisia serve [--config <path>] [--port <port>]

Flags:
  --config string   Path to YAML configuration file (defaults apply when omitted)
  --port   int      Override server port from configuration`

func serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, serveUsage)
	}

	var cfgPath string
	var overridePort int
	fs.StringVar(&cfgPath, "config", "", "path to configuration file")
	fs.IntVar(&overridePort, "port", 0, "override server port")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse serve flags: %w", err)
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	if overridePort != 0 {
		if overridePort < 0 || overridePort > 65535 {
			return fmt.Errorf("port override %d must be a valid TCP port", overridePort)
		}
		cfg.Server.Port = overridePort
	}

	log, closer, err := logger.New(cfg.Log, os.Stdout)
	if err != nil {
		return err
	}
	defer closer.Close()

	creds := credentials.NewEnvSource()
	httpClient := provider.NewHTTPClient(cfg.HTTP.DialTimeout.Std())

	anthropicClient, err := anthropic.New(creds, httpClient, log)
	if err != nil {
		return err
	}
	openaiClient, err := openai.New(creds, httpClient, log)
	if err != nil {
		return err
	}

	facade, err := command.New(command.Deps{
		Anthropic:      anthropicClient,
		OpenAI:         openaiClient,
		Catalog:        catalog.NewLoader(cfg.Catalog.Path),
		Logger:         log,
		RequestTimeout: cfg.HTTP.RequestTimeout.Std(),
	})
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, facade, log)
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"voisia/internal/catalog"
)

const modelsUsage = `Usage:
  voisia models [--config <path>] [--catalog <path>]

Flags:
  --config  string   Path to YAML configuration file
  --catalog string   Override the catalog path from configuration`

func listModels(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("models", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, modelsUsage)
	}

	var cfgPath, catalogPath string
	fs.StringVar(&cfgPath, "config", "", "path to configuration file")
	fs.StringVar(&catalogPath, "catalog", "", "override catalog path")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse models flags: %w", err)
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	if catalogPath != "" {
		cfg.Catalog.Path = catalogPath
	}

	c, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return err
	}
	return printModels(os.Stdout, c.Models())
}

func printModels(w io.Writer, list []catalog.ModelInfo) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPROVIDER\tTAGS\tMAX TOKENS\tTEMPERATURE\tTOP P")
	for _, m := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%g\t%g\n",
			m.ID, m.DisplayName, m.Provider, strings.Join(m.Tags, ","),
			m.Params.MaxTokens, m.Params.Temperature, m.Params.TopP)
	}
	return tw.Flush()
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

const version = "0.1.0"

func newApp(stdout, stderr io.Writer) *cli.Command {
	r := &runner{stdout: stdout, stderr: stderr}
	return &cli.Command{
		Name:      "semindex",
		Usage:     "Incremental semantic index for a Markdown note vault",
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("SEMINDEX_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "vault",
				Usage:   "Vault directory (overrides vault.path)",
				Sources: cli.EnvVars("SEMINDEX_VAULT"),
			},
			&cli.StringFlag{
				Name:    "backend",
				Usage:   "Index backend: json or sqlite (overrides index.backend)",
				Sources: cli.EnvVars("SEMINDEX_BACKEND"),
			},
		},
		Commands: r.commands(),
	}
}

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

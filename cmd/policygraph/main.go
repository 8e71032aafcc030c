// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/poiesic/policygraph"
	"github.com/poiesic/policygraph/config"
	"github.com/urfave/cli/v2"
)

const configKey = "config"

// openDatabase is replaced in tests to inject a mock AI provider.
var openDatabase = func(cfg *config.Config) (*policygraph.Database, error) {
	return policygraph.NewDatabase(cfg)
}

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "policygraph",
		Usage:     "Hybrid graph and vector retrieval over insurance policy clauses",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				EnvVars: []string{"POLICYGRAPH_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Dotenv file loaded before configuration",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error); overrides the config file",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log output format (text, json); overrides the config file",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			ingestCommand(),
			queryCommand(),
			searchCommand(),
			clauseCommand(),
			reembedCommand(),
			statsCommand(),
			serveCommand(),
		},
	}
}

// setup loads the environment file and configuration, then installs the
// default logger.
func setup(c *cli.Context) error {
	if err := godotenv.Load(c.String("env-file")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Log.Format = c.String("log-format")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := cfg.Log.NewLogger(c.App.ErrWriter)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	c.App.Metadata = map[string]any{configKey: cfg}
	return nil
}

func loadedConfig(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata[configKey].(*config.Config); ok {
		return cfg
	}
	return config.Default()
}

// withDatabase opens the configured database for the duration of fn.
func withDatabase(c *cli.Context, fn func(db *policygraph.Database) error) error {
	cfg := loadedConfig(c)
	if c.IsSet("db") {
		cfg.Store.Path = c.String("db")
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	return fn(db)
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "db",
		Aliases: []string{"d"},
		Usage:   "Store path; overrides store.path from the config file",
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Print machine-readable JSON",
	}
}

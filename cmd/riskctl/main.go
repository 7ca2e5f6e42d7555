package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dermrisk/backend/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	version = "v0.0.1-default"

	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs (optional, default: false)",
	}

	formatFlag = &cli.StringFlag{
		Name:  "format",
		Usage: "Output format [json, yaml]",
		Value: formatJSON,
	}

	modelFileFlag = &cli.StringFlag{
		Name:    "model-file",
		Usage:   "Path to a YAML scoring model (default: reference model)",
		Sources: cli.EnvVars("MODEL_FILE"),
	}
)

func main() {
	logging.Init("info", false)

	if err := newApp(os.Stdin, os.Stdout).Run(context.Background(), os.Args); err != nil {
		log.Error().Err(err).Msg("fatal error")
		os.Exit(1)
	}
}

func newApp(in io.Reader, out io.Writer) *cli.Command {
	return &cli.Command{
		Name:            "riskctl",
		Version:         version,
		Usage:           "Score CTCL risk observations and manage the scoring service",
		HideHelpCommand: true,
		Reader:          in,
		Writer:          out,
		Flags: []cli.Flag{
			debugFlag,
			formatFlag,
		},
		Commands: []*cli.Command{
			scoreCmd,
			modelCmd,
			tokenCmd,
			auditCmd,
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool(debugFlag.Name) {
				logging.Init("debug", false)
			}
			return ctx, nil
		},
	}
}

// printOut writes v to w in the requested format.
func printOut(w io.Writer, format string, v any) error {
	switch format {
	case formatYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case formatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

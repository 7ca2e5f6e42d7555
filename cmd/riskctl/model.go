package main

import (
	"context"
	"fmt"

	"github.com/dermrisk/backend/internal/config"
	"github.com/urfave/cli/v3"
)

var modelCmd = &cli.Command{
	Name:  "model",
	Usage: "Validate a scoring model and print it as YAML",
	Flags: []cli.Flag{
		modelFileFlag,
	},
	Action: cmdModel,
}

func cmdModel(_ context.Context, cmd *cli.Command) error {
	model, err := config.LoadModel(cmd.String(modelFileFlag.Name))
	if err != nil {
		return err
	}

	b, err := config.EncodeModel(model)
	if err != nil {
		return err
	}
	if _, err := cmd.Root().Writer.Write(b); err != nil {
		return fmt.Errorf("failed to write model: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dermrisk/backend/internal/config"
	"github.com/dermrisk/backend/internal/predict"
	"github.com/dermrisk/backend/internal/scoring"
	"github.com/urfave/cli/v3"
)

var (
	inputFileFlag = &cli.StringFlag{
		Name:  "file",
		Usage: "JSON observation record (default: stdin)",
	}

	explainFlag = &cli.BoolFlag{
		Name:  "explain",
		Usage: "Include the pipeline breakdown (optional, default: false)",
	}

	scoreCmd = &cli.Command{
		Name:  "score",
		Usage: "Compute the risk score for one observation record",
		Flags: []cli.Flag{
			inputFileFlag,
			explainFlag,
			modelFileFlag,
		},
		Action: cmdScore,
	}
)

func cmdScore(ctx context.Context, cmd *cli.Command) error {
	in := cmd.Root().Reader
	if path := cmd.String(inputFileFlag.Name); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open input file: %s: %w", path, err)
		}
		defer f.Close()
		in = f
	}

	svc, err := newService(cmd.String(modelFileFlag.Name))
	if err != nil {
		return err
	}

	result, err := scoreRecord(ctx, svc, in, cmd.Bool(explainFlag.Name))
	if err != nil {
		return err
	}
	return printOut(cmd.Root().Writer, cmd.Root().String(formatFlag.Name), result)
}

func newService(modelFile string) (*predict.Service, error) {
	model, err := config.LoadModel(modelFile)
	if err != nil {
		return nil, err
	}
	engine, err := scoring.NewEngine(model)
	if err != nil {
		return nil, err
	}
	return predict.NewService(engine, model.Version, nil, nil), nil
}

// scoreRecord decodes one JSON object from r and scores it.
func scoreRecord(ctx context.Context, svc *predict.Service, r io.Reader, explain bool) (any, error) {
	record, err := predict.DecodeRecord(r)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON record: %w", err)
	}

	if explain {
		return svc.Explain(ctx, record)
	}
	return svc.Predict(ctx, record)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dermrisk/backend/internal/auth"
	"github.com/urfave/cli/v3"
)

var (
	subjectFlag = &cli.StringFlag{
		Name:     "subject",
		Usage:    "Client the token is issued to",
		Required: true,
	}

	secretFlag = &cli.StringFlag{
		Name:    "secret",
		Usage:   "Signing secret",
		Sources: cli.EnvVars("AUTH_SECRET"),
	}

	ttlFlag = &cli.StringFlag{
		Name:  "ttl",
		Usage: "Token lifetime, e.g. 24h",
		Value: auth.DefaultTTL.String(),
	}

	tokenCmd = &cli.Command{
		Name:  "token",
		Usage: "Issue an API bearer token",
		Flags: []cli.Flag{
			subjectFlag,
			secretFlag,
			ttlFlag,
		},
		Action: cmdToken,
	}
)

func cmdToken(_ context.Context, cmd *cli.Command) error {
	token, err := issueToken(cmd.String(secretFlag.Name), cmd.String(subjectFlag.Name), cmd.String(ttlFlag.Name))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, token)
	return nil
}

func issueToken(secret, subject, ttl string) (string, error) {
	if secret == "" {
		return "", errors.New("signing secret required: set AUTH_SECRET or --secret")
	}
	d, err := time.ParseDuration(ttl)
	if err != nil {
		return "", fmt.Errorf("invalid ttl %q: %w", ttl, err)
	}
	if d <= 0 {
		return "", fmt.Errorf("ttl must be positive, got %s", ttl)
	}
	return auth.IssueToken([]byte(secret), subject, d)
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/florianilch/authkit/internal/app"
)

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "read and write the token cache",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "print the value stored under KEY",
				ArgsUsage: "KEY",
				Flags:     cacheFlags(),
				Action:    tokenGetAction,
			},
			{
				Name:      "set",
				Usage:     "store VALUE under KEY (prompts when VALUE is omitted)",
				ArgsUsage: "KEY [VALUE]",
				Flags:     cacheFlags(),
				Action:    tokenSetAction,
			},
			{
				Name:      "delete",
				Usage:     "remove KEY",
				ArgsUsage: "KEY",
				Flags:     cacheFlags(),
				Action:    tokenDeleteAction,
			},
		},
	}
}

func tokenGetAction(ctx context.Context, cmd *cli.Command) error {
	key := cmd.Args().First()
	if key == "" {
		return errors.New("missing KEY argument")
	}

	cfg, cleanup, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	cache, err := app.NewTokenCache(cfg.Cache)
	if err != nil {
		return err
	}

	value, ok := cache.GetToken(ctx, key)
	if !ok {
		return fmt.Errorf("no value stored under key %q", key)
	}

	_, err = fmt.Fprintln(cmd.Root().Writer, value)
	return err
}

func tokenSetAction(ctx context.Context, cmd *cli.Command) error {
	key := cmd.Args().First()
	if key == "" {
		return errors.New("missing KEY argument")
	}

	value, err := readValue(cmd)
	if err != nil {
		return fmt.Errorf("reading value: %w", err)
	}

	cfg, cleanup, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	cache, err := app.NewTokenCache(cfg.Cache)
	if err != nil {
		return err
	}

	cache.SaveToken(ctx, key, value)
	return nil
}

func tokenDeleteAction(ctx context.Context, cmd *cli.Command) error {
	key := cmd.Args().First()
	if key == "" {
		return errors.New("missing KEY argument")
	}

	cfg, cleanup, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	cache, err := app.NewTokenCache(cfg.Cache)
	if err != nil {
		return err
	}

	cache.DeleteToken(ctx, key)
	return nil
}

// readValue returns the VALUE argument, or reads it from stdin: without echo when
// stdin is a terminal, verbatim (minus the trailing newline) when piped.
func readValue(cmd *cli.Command) (string, error) {
	if cmd.NArg() > 1 {
		return cmd.Args().Get(1), nil
	}

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		_, _ = fmt.Fprint(cmd.Root().ErrWriter, "Value: ")
		value, err := term.ReadPassword(fd)
		_, _ = fmt.Fprintln(cmd.Root().ErrWriter)
		return string(value), err
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

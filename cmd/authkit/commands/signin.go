package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/florianilch/authkit/internal/app"
	"github.com/florianilch/authkit/internal/oauthflow"
)

var errSignInFailed = errors.New("sign-in failed")

// signInFlags configure the identity provider and where new users are registered.
func signInFlags() []cli.Flag {
	return append(cacheFlags(),
		&cli.StringFlag{
			Name:  "signin--provider",
			Usage: "identity provider (google|custom)",
			Value: string(app.DefaultConfigSignInProvider),
		},
		&cli.StringFlag{
			Name:  "signin--client-id",
			Usage: "OAuth client id",
		},
		&cli.IntFlag{
			Name:  "signin--callback-port",
			Usage: "loopback port for the OAuth callback (0 picks a free port)",
		},
		&cli.StringFlag{
			Name:  "signin--redirect-path",
			Usage: "in-app destination after sign-in",
			Value: app.DefaultConfigRedirectPath,
		},
		&cli.StringFlag{
			Name:  "api--base-url",
			Usage: "user API base URL",
			Value: app.DefaultConfigAPIBaseURL,
		},
	)
}

func signInCommand() *cli.Command {
	return &cli.Command{
		Name:   "signin",
		Usage:  "sign in through the browser and register first-time users",
		Flags:  signInFlags(),
		Action: signInAction,
	}
}

func signInAction(ctx context.Context, cmd *cli.Command) error {
	cfg, cleanup, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := cfg.SignIn.RequireClient(); err != nil {
		return err
	}

	cache, err := app.NewTokenCache(cfg.Cache)
	if err != nil {
		return err
	}

	initiator, err := app.NewInitiator(cfg)
	if err != nil {
		return fmt.Errorf("failed to create sign-in initiator: %w", err)
	}

	flow, err := app.NewBrowserFlow(cfg, cache)
	if err != nil {
		return fmt.Errorf("failed to create browser flow: %w", err)
	}

	result := initiator.Start(ctx, flow.Start)

	if err := writeJSON(cmd, result); err != nil {
		return err
	}
	if !result.Success {
		return errSignInFailed
	}
	return nil
}

func signOutCommand() *cli.Command {
	return &cli.Command{
		Name:  "signout",
		Usage: "forget the active session",
		Flags: cacheFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, cleanup, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			cache, err := app.NewTokenCache(cfg.Cache)
			if err != nil {
				return err
			}

			cache.DeleteToken(ctx, oauthflow.SessionTokenKey)
			cache.DeleteToken(ctx, oauthflow.SessionIDKey)
			return nil
		},
	}
}

func whoAmICommand() *cli.Command {
	return &cli.Command{
		Name:   "whoami",
		Usage:  "show the signed-in user, refreshing the session token if needed",
		Flags:  signInFlags(),
		Action: whoAmIAction,
	}
}

func whoAmIAction(ctx context.Context, cmd *cli.Command) error {
	cfg, cleanup, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := cfg.SignIn.RequireClient(); err != nil {
		return err
	}

	cache, err := app.NewTokenCache(cfg.Cache)
	if err != nil {
		return err
	}

	provider := cfg.SignIn.OAuthProvider()
	oauthConfig := provider.OAuth2Config()
	ts, err := app.NewPersistentTokenSource(func(token *oauth2.Token) oauth2.TokenSource {
		return oauthConfig.TokenSource(ctx, token)
	}, cache, oauthflow.SessionTokenKey)
	if err != nil {
		return err
	}

	info, err := oauthflow.FetchUserInfo(ctx, oauth2.NewClient(ctx, ts), provider.UserInfoURL)
	if err != nil {
		return err
	}

	return writeJSON(cmd, info)
}

func writeJSON(cmd *cli.Command, v any) error {
	enc := json.NewEncoder(cmd.Root().Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

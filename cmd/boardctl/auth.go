package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gosuda/agileboard/internal/client"
)

const apiKeyName = "boardctl"

// passwordFlag reads --password, falling back to AGILEBOARD_PASSWORD.
func passwordFlag(cmd *cobra.Command) (string, error) {
	pw, _ := cmd.Flags().GetString("password")
	if pw == "" {
		pw = os.Getenv("AGILEBOARD_PASSWORD")
	}
	if pw == "" {
		return "", errors.New("password required; pass --password or set AGILEBOARD_PASSWORD")
	}
	return pw, nil
}

// storeKey trades a fresh access token for a long-lived API key and saves it.
func (a *app) storeKey(cmd *cobra.Command, s *client.Session) error {
	c := a.client().WithCredentials(client.Credentials{Token: s.AccessToken})
	key, _, err := c.CreateAPIKey(cmd.Context(), apiKeyName, 0)
	if err != nil {
		return err
	}
	if err := a.saveConfig(a.server(), key, a.v.GetString(keyProject)); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s; credentials saved to %s\n", s.User.Email, a.configPath())
	return nil
}

func (a *app) loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store an API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, _ := cmd.Flags().GetString("email")
			pw, err := passwordFlag(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()
			cmd.SetContext(ctx)

			s, err := a.client().Login(ctx, email, pw)
			if err != nil {
				return err
			}
			return a.storeKey(cmd, s)
		},
	}
	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and store an API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, _ := cmd.Flags().GetString("email")
			name, _ := cmd.Flags().GetString("name")
			pw, err := passwordFlag(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()
			cmd.SetContext(ctx)

			s, err := a.client().Register(ctx, email, pw, name)
			if err != nil {
				return err
			}
			return a.storeKey(cmd, s)
		},
	}
	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("password", "", "account password")
	cmd.Flags().String("name", "", "display name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.authedClient()
			if err != nil {
				return err
			}
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			me, err := c.Me(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s <%s> %s\n", me.Name, me.Email, me.ID)
			return nil
		},
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gosuda/agileboard/internal/board"
	"github.com/gosuda/agileboard/internal/client"
)

const (
	keyServer   = "server"
	keyAPIKey   = "api_key"
	keyProject  = "project"
	keyTimeout  = "timeout"
	keyLogLevel = "log_level"

	defaultServer = "http://localhost:8080"
)

// app carries the resolved settings into every subcommand.
type app struct {
	v          *viper.Viper
	out        io.Writer
	configFile string
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out}

	root := &cobra.Command{
		Use:           "boardctl",
		Short:         "Terminal client for Agileboard",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.loadConfig(); err != nil {
				return err
			}
			level, err := zerolog.ParseLevel(a.v.GetString(keyLogLevel))
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", a.v.GetString(keyLogLevel), err)
			}
			zerolog.SetGlobalLevel(level)
			return nil
		},
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/agileboard/boardctl.yaml)")
	pf.String("server", defaultServer, "Agileboard server URL")
	pf.String("api-key", "", "API key")
	pf.StringP("project", "p", "", "project ID")
	pf.Duration("timeout", 15*time.Second, "request timeout")
	pf.String("log-level", "warn", "log level (debug, info, warn, error)")

	for key, flag := range map[string]string{
		keyServer:   "server",
		keyAPIKey:   "api-key",
		keyProject:  "project",
		keyTimeout:  "timeout",
		keyLogLevel: "log-level",
	} {
		_ = a.v.BindPFlag(key, pf.Lookup(flag))
	}
	a.v.SetEnvPrefix("AGILEBOARD")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(
		a.loginCmd(),
		a.registerCmd(),
		a.whoamiCmd(),
		a.projectsCmd(),
		a.boardCmd(),
		a.backlogCmd(),
		a.moveCmd(),
		a.dropCmd(),
		a.taskCmd(),
		a.watchCmd(),
		a.inviteCmd(),
		a.invitationsCmd(),
		a.acceptCmd(),
	)
	return root
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "agileboard", "boardctl.yaml")
}

func (a *app) configPath() string {
	if a.configFile != "" {
		return a.configFile
	}
	return defaultConfigPath()
}

// loadConfig reads the config file when it exists. Flags and AGILEBOARD_*
// variables take precedence over it.
func (a *app) loadConfig() error {
	path := a.configPath()
	if path == "" {
		return nil
	}
	a.v.SetConfigFile(path)
	a.v.SetConfigType("yaml")
	if err := a.v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// saveConfig writes the server, key and project to the config file.
func (a *app) saveConfig(server, apiKey, project string) error {
	path := a.configPath()
	if path == "" {
		return errors.New("no config path; pass --config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	w := viper.New()
	w.Set(keyServer, server)
	w.Set(keyAPIKey, apiKey)
	if project != "" {
		w.Set(keyProject, project)
	}
	if err := w.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return os.Chmod(path, 0o600)
}

func (a *app) server() string { return a.v.GetString(keyServer) }

func (a *app) client() *client.Client {
	return client.New(a.server(), client.Credentials{APIKey: a.v.GetString(keyAPIKey)},
		client.WithUserAgent("boardctl/"+version))
}

// authedClient is client() for commands that need credentials.
func (a *app) authedClient() (*client.Client, error) {
	if a.v.GetString(keyAPIKey) == "" {
		return nil, errors.New("not logged in; run `boardctl login` or set AGILEBOARD_API_KEY")
	}
	return a.client(), nil
}

func (a *app) projectID() (uuid.UUID, error) {
	raw := a.v.GetString(keyProject)
	if raw == "" {
		return uuid.Nil, errors.New("no project selected; pass --project or set AGILEBOARD_PROJECT")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid project id %q: %w", raw, err)
	}
	return id, nil
}

func (a *app) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d := a.v.GetDuration(keyTimeout); d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

// loadBoard returns a board for the selected project, filled from the server.
func (a *app) loadBoard(ctx context.Context) (*board.Board, *client.Client, error) {
	c, err := a.authedClient()
	if err != nil {
		return nil, nil, err
	}
	projectID, err := a.projectID()
	if err != nil {
		return nil, nil, err
	}
	b := board.New(c, projectID, log.Logger)
	if err := b.Load(ctx); err != nil {
		return nil, nil, err
	}
	return b, c, nil
}

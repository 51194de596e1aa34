package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jlrickert/cli-toolkit/mylog"
	"github.com/spf13/cobra"

	"github.com/jlrickert/textpix/pkg/config"
	"github.com/jlrickert/textpix/pkg/gateway"
	"github.com/jlrickert/textpix/pkg/store"
	"github.com/jlrickert/textpix/pkg/textpix"
)

type shutdownKey struct{}

// Deps carries flag values and the collaborators commands run against.
// Collaborators left nil are built from configuration in PersistentPreRunE,
// so tests can inject fakes before Execute.
type Deps struct {
	ConfigPath string
	EnvFile    string
	LogFile    string
	LogLevel   string
	LogJSON    bool

	Logger  *slog.Logger
	Repo    store.Repository
	Gateway gateway.Gateway
	Fetcher textpix.Fetcher
	Clock   store.Clock

	Config  *config.Config
	Store   *store.Store
	Service *textpix.Service
}

func NewRootCmd(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = &Deps{}
	}

	cmd := &cobra.Command{
		Use:           "textpix",
		Short:         "turn text into illustrated image records",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			lg, closeLog, err := deps.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx = mylog.WithLogger(ctx, lg)
			ctx = context.WithValue(ctx, shutdownKey{}, closeLog)

			if err := deps.wire(cmd); err != nil {
				return err
			}
			cmd.SetContext(ctx)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if v := cmd.Context().Value(shutdownKey{}); v != nil {
				if sd, ok := v.(func()); ok && sd != nil {
					sd()
				}
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&deps.LogFile, "log-file", "", "write logs to file (default stderr)")
	cmd.PersistentFlags().StringVar(&deps.LogLevel, "log-level", "info", "minimum log level")
	cmd.PersistentFlags().BoolVar(&deps.LogJSON, "log-json", false, "output logs as JSON")
	cmd.PersistentFlags().StringVarP(&deps.ConfigPath, "config", "c", "", "path to config file")
	cmd.PersistentFlags().StringVar(&deps.EnvFile, "env-file", "", "dotenv file to load (default .env)")
	cmd.PersistentFlags().String("data-dir", "", "directory holding image records")
	cmd.PersistentFlags().String("url-prefix", "", "prefix for image URLs")

	cmd.AddCommand(
		NewServeCmd(deps),
		NewMCPCmd(deps),
		NewCreateCmd(deps),
		NewSaveCmd(deps),
		NewRegenerateCmd(deps),
		NewLoadCmd(deps),
		NewMetaCmd(deps),
		NewUpdateTextCmd(deps),
		NewUpdateMetaCmd(deps),
		NewRmCmd(deps),
		NewListCmd(deps),
		NewSearchCmd(deps),
		NewDescribeCmd(deps),
	)

	return cmd
}

// logger returns the injected logger or one built from the log flags, plus
// a func releasing any log file.
func (d *Deps) logger(stderr io.Writer) (*slog.Logger, func(), error) {
	if d.Logger != nil {
		return d.Logger, func() {}, nil
	}
	out := stderr
	closeLog := func() {}
	if d.LogFile != "" {
		f, err := os.OpenFile(d.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}
		out = f
		closeLog = func() { _ = f.Close() }
	}
	lg := mylog.NewLogger(mylog.LoggerConfig{
		Out:     out,
		Level:   mylog.ParseLevel(d.LogLevel),
		JSON:    d.LogJSON,
		Version: Version,
	})
	return lg, closeLog, nil
}

// wire loads configuration and builds whatever collaborators were not
// injected.
func (d *Deps) wire(cmd *cobra.Command) error {
	if d.Config == nil {
		cfg, err := config.Load(config.LoadOptions{
			ConfigFile: d.ConfigPath,
			EnvFile:    d.EnvFile,
			Flags:      cmd.Flags(),
		})
		if err != nil {
			return err
		}
		d.Config = cfg
	}
	if err := d.Config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if d.Repo == nil {
		d.Repo = store.NewFsRepo(d.Config.DataDir)
	}
	if d.Gateway == nil {
		d.Gateway = gateway.NewOpenAI(d.Config.OpenAI())
	}
	if d.Fetcher == nil {
		d.Fetcher = gateway.NewDownloader(d.Config.RetryPolicy())
	}
	if d.Store == nil {
		d.Store = store.New(d.Repo, store.Options{
			URLPrefix: d.Config.URLPrefix,
			Clock:     d.Clock,
		})
	}
	if d.Service == nil {
		d.Service = textpix.New(d.Store, d.Gateway, d.Fetcher, textpix.Options{
			MaxDescribeBytes: d.Config.MaxDescribeBytes,
			Clock:            d.Clock,
		})
	}
	return nil
}

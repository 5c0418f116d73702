package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/BakeLens/securefs/internal/config"
	"github.com/BakeLens/securefs/internal/fileutil"
	"github.com/BakeLens/securefs/internal/logger"
	"github.com/BakeLens/securefs/internal/platform"
	"github.com/BakeLens/securefs/internal/secretstore"
	"github.com/BakeLens/securefs/internal/types"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// Version is set at build time via ldflags: -X main.Version=x.y.z
var Version = "0.1.0"

var log = logger.New("securefs")

// maxParallelMkdir bounds the goroutines used by "mkdir" with many paths.
const maxParallelMkdir = 8

// app carries state shared by all subcommands.
type app struct {
	configPath string
	logLevel   string
	noColor    bool

	cfg *config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "securefs",
		Short:        "Create owner-only directories, files and secrets",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadConfig(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultConfigPath(), "path to the config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored log output")

	root.AddCommand(
		a.mkdirCmd(),
		a.newFileCmd(),
		a.checkCmd(),
		a.secretCmd(),
		a.infoCmd(),
		versionCmd(),
	)
	return root
}

// loadConfig resolves the configuration: file, then environment, then flags.
func (a *app) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	env.Apply(cfg)

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = types.LogLevel(a.logLevel)
	}
	if flags.Changed("no-color") {
		cfg.Log.NoColor = a.noColor
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	cfg.Log.Level = cfg.Log.Level.OrDefault()
	level, err := logger.ParseLevel(string(cfg.Log.Level))
	if err != nil {
		return err
	}
	logger.SetGlobalLevel(level)
	logger.SetColored(!cfg.Log.NoColor)

	a.cfg = cfg
	return nil
}

func (a *app) mkdirCmd() *cobra.Command {
	var parents bool
	cmd := &cobra.Command{
		Use:   "mkdir PATH...",
		Short: "Create directories accessible only to the current user",
		Long: "Create each PATH as an owner-only directory. An existing directory is\n" +
			"re-secured in place; an existing non-directory is an error.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			create := fileutil.CreateSecureDirectory
			if parents {
				create = fileutil.SecureMkdirAll
			}

			var g errgroup.Group
			g.SetLimit(maxParallelMkdir)
			for _, p := range args {
				g.Go(func() error { return create(p) })
			}
			if err := g.Wait(); err != nil {
				return err
			}
			for _, p := range args {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&parents, "parents", "p", false, "create missing parent directories, each owner-only")
	return cmd
}

func (a *app) newFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new PATH",
		Short: "Create a new owner-only file from stdin",
		Long:  "Create PATH exclusively (it must not exist) and copy stdin into it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var n int64
			err := fileutil.WithNewSecureFile(args[0], func(f *os.File) error {
				var err error
				n, err = io.Copy(f, cmd.InOrStdin())
				return err
			})
			if err != nil {
				return err
			}
			log.Debug("wrote %d bytes to %s", n, args[0])
			return nil
		},
	}
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check PATH...",
		Short: "Verify that paths are accessible only to their owner",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := 0
			for _, p := range args {
				if err := fileutil.CheckOwnerOnly(p); err != nil {
					failed++
					fmt.Fprintf(out, "FAIL %s: %v\n", p, err)
					continue
				}
				fmt.Fprintf(out, "ok   %s\n", p)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d paths are not owner-only", failed, len(args))
			}
			return nil
		},
	}
}

func (a *app) openStore() (*secretstore.Store, error) {
	opts := []secretstore.Option{secretstore.WithLockTimeout(a.cfg.Store.LockTimeout)}
	if a.cfg.Store.CreateParents {
		opts = append(opts, secretstore.WithCreateParents())
	}
	return secretstore.Open(a.cfg.Store.Dir, opts...)
}

// secretCmd groups the store subcommands. Secret values are read from stdin,
// never from flags: flags are visible in process listings.
func (a *app) secretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage secrets in the owner-only secret store",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "create NAME",
			Short: "Store a new secret read from stdin; fails if NAME exists",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := a.openStore()
				if err != nil {
					return err
				}
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				return store.Create(args[0], data)
			},
		},
		&cobra.Command{
			Use:   "put NAME",
			Short: "Create or replace a secret read from stdin",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := a.openStore()
				if err != nil {
					return err
				}
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				return store.Put(cmd.Context(), args[0], data)
			},
		},
		&cobra.Command{
			Use:   "get NAME",
			Short: "Print a secret to stdout",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := a.openStore()
				if err != nil {
					return err
				}
				data, err := store.Get(args[0])
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List secret names",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := a.openStore()
				if err != nil {
					return err
				}
				names, err := store.List()
				if err != nil {
					return err
				}
				for _, n := range names {
					fmt.Fprintln(cmd.OutOrStdout(), n)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "prune",
			Short: "Remove staging files left by interrupted writes",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := a.openStore()
				if err != nil {
					return err
				}
				n, err := store.Prune(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d staging file(s)\n", n)
				return nil
			},
		},
		&cobra.Command{
			Use:     "rm NAME",
			Aliases: []string{"delete"},
			Short:   "Delete a secret",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := a.openStore()
				if err != nil {
					return err
				}
				err = store.Delete(cmd.Context(), args[0])
				if errors.Is(err, secretstore.ErrNotFound) {
					log.Warn("%v", err)
				}
				return err
			},
		},
	)
	return cmd
}

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the detected platform and permission strategy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := platform.Describe()
			if err != nil {
				return err
			}
			s, err := fileutil.DefaultStrategy()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "os:        %s/%s\n", info.OS, info.Arch)
			fmt.Fprintf(out, "version:   %s\n", info.OSVersion)
			fmt.Fprintf(out, "hostname:  %s\n", info.Hostname)
			fmt.Fprintf(out, "strategy:  %s\n", s.Name())
			fmt.Fprintf(out, "store:     %s\n", a.cfg.Store.Dir)
			fmt.Fprintf(out, "log level: %s\n", a.cfg.Log.Level)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "securefs %s\n", Version)
			return nil
		},
	}
}

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/talkincode/cafestock/config"
	"github.com/talkincode/cafestock/internal/app"
	"github.com/talkincode/cafestock/internal/controller"
	"github.com/talkincode/cafestock/internal/view/console"
)

// cli carries the state shared by every command of one invocation
type cli struct {
	configFile string
	workdir    string
	backend    string
	assumeYes  bool
	verbose    bool

	cfg         *config.AppConfig
	application *app.Application
}

// session is one interactive controller bound to the command's output
type session struct {
	view   *console.View
	prompt *console.Prompt
	ctrl   *controller.Controller
}

func (c *cli) session(cmd *cobra.Command) *session {
	view := console.New(cmd.OutOrStdout(), c.cfg.GetExportDir())
	prompt := &console.Prompt{
		In:        cmd.InOrStdin(),
		Out:       cmd.OutOrStdout(),
		AssumeYes: c.assumeYes,
	}
	return &session{view: view, prompt: prompt, ctrl: c.application.NewController(view, prompt)}
}

// release closes the application opened by the command, whether it failed or not
func (c *cli) release() {
	if c.application != nil {
		c.application.Release()
		c.application = nil
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "cafestock",
		Short:         "Cafeteria product inventory",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(c.configFile)
			if err != nil {
				return err
			}
			if c.workdir != "" {
				cfg.System.Workdir = c.workdir
			}
			if c.backend != "" {
				cfg.Storage.Backend = c.backend
			}
			if !c.verbose && cmd.Name() != "serve" && cfg.Logger.Level == "" {
				cfg.Logger.Level = "warn"
			}
			if err := cfg.InitDirs(); err != nil {
				return err
			}
			c.cfg = cfg
			c.application = app.NewApplication(cfg)
			return c.application.Init(cfg)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.configFile, "config", "c", "", "config file (default cafestock.yml or /etc/cafestock.yml)")
	flags.StringVar(&c.workdir, "workdir", "", "working directory for data, logs and exports")
	flags.StringVar(&c.backend, "backend", "", "storage backend: bolt or memory")
	flags.BoolVarP(&c.assumeYes, "yes", "y", false, "approve confirmations without asking")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "log at the configured level instead of warn")

	root.AddCommand(
		newListCmd(c),
		newShowCmd(c),
		newAddCmd(c),
		newUpdateCmd(c),
		newDeleteCmd(c),
		newStatsCmd(c),
		newExportCmd(c),
		newImportCmd(c),
		newResetCmd(c),
		newClearCmd(c),
		newStorageCmd(c),
		newServeCmd(c),
	)
	return root
}

func main() {
	c := &cli{}
	err := newRootCmd(c).Execute()
	c.release()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", strings.TrimSpace(err.Error()))
		os.Exit(1)
	}
}

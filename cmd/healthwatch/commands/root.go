package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"healthwatch/internal/app"
	"healthwatch/internal/config"
	logx "healthwatch/pkg/logx"
)

const envConfigPath = "HEALTHWATCH_CONFIG"

type globals struct {
	configPath string
	logLevel   string
	getenv     func(string) string
}

func (g *globals) manager() *config.Manager {
	m := config.NewManager(g.configPath)
	m.SetEnv(g.getenv)
	return m
}

func (g *globals) cliLogger() logx.Logger { return logx.NewConsole(g.logLevel) }

// withStores loads the config and opens storage and state for a management
// command.
func (g *globals) withStores(ctx context.Context, fn func(*app.Stores) error) error {
	rt, err := g.manager().Load()
	if err != nil {
		return err
	}
	s, err := app.OpenStores(ctx, rt, g.cliLogger())
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	g := &globals{getenv: os.Getenv}
	def := strings.TrimSpace(os.Getenv(envConfigPath))
	if def == "" {
		def = "./config.yaml"
	}

	root := &cobra.Command{
		Use:           "healthwatch",
		Short:         "healthwatch scrapes public-health pages and notifies subscribers of changes.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", def, "path to the config file (yaml or json, env "+envConfigPath+")")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "WARN", "log level for management commands")

	root.AddCommand(
		newRunCmd(g),
		newOnceCmd(g),
		newSubscribeCmd(g),
		newUnsubscribeCmd(g),
		newSubscriptionsCmd(g),
		newRegionsCmd(g),
		newStatusCmd(g),
		newConfigCmd(g),
	)
	return root
}

func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func newTable(cmd *cobra.Command) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(cmd.OutOrStdout())
	return t
}

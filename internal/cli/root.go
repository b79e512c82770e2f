// Package cli implements the forensiq terminal client.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bryanwahyu/forensiq/internal/client"
)

const (
	defaultServer  = "http://localhost:5000"
	defaultTimeout = 5 * time.Minute
)

type app struct {
	v       *viper.Viper
	cfgFile string
	out     io.Writer
	errOut  io.Writer
}

// NewRootCmd builds the command tree writing results to out and
// notifications to errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "forensiq",
		Short: "forensiq - evidence triage client",
		Long: `forensiq submits evidence files (browser history CSV, auth logs,
suspicious binaries) to a forensiq server and renders the investigation
report and the correlated timeline in the terminal.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig(cmd)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", "", "config file (default: $HOME/.forensiq.yaml)")
	pf.String("server", defaultServer, "forensiq server URL")
	pf.String("api-key", "", "API key for the /v1 endpoints")
	pf.Duration("timeout", defaultTimeout, "request timeout")
	pf.StringP("output", "o", "text", "output format: text, json")
	pf.Int("width", 100, "render width in columns")

	root.AddCommand(a.analyzeCmd(), a.watchCmd(), a.historyCmd(), a.showCmd())
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *app) initConfig(cmd *cobra.Command) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(home)
		}
		a.v.AddConfigPath(".")
		a.v.SetConfigName(".forensiq")
		a.v.SetConfigType("yaml")
	}

	a.v.SetEnvPrefix("FORENSIQ")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func (a *app) client() *client.Client {
	return client.New(a.v.GetString("server"), a.v.GetString("api-key"), a.v.GetDuration("timeout"))
}

func (a *app) jsonOutput() (bool, error) {
	switch f := a.v.GetString("output"); f {
	case "text":
		return false, nil
	case "json":
		return true, nil
	default:
		return false, fmt.Errorf("unknown output format %q (text, json)", f)
	}
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Command agridash runs the Smart Agri dashboard and exposes its pages as
// CLI commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type rootFlags struct {
	ephemeral bool
	simulate  bool
}

func (f *rootFlags) options() appOptions {
	return appOptions{ephemeral: f.ephemeral, simulate: f.simulate}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "agridash",
		Short: "Smart Agri dashboard and prediction client",
		Long: `agridash serves the Smart Agri web dashboard and exposes each of its
pages as a command: weather lookup, crop, yield, stress, spray and fertilizer
predictions, fruit and leaf disease detection, and the farming assistant.

Configuration is read from the environment (and an optional .env file).
Session and shared weather are kept in STATE_PATH unless --ephemeral is set.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&flags.ephemeral, "ephemeral", false, "Keep session and weather in memory only")
	root.PersistentFlags().BoolVar(&flags.simulate, "simulate", false, "Show labelled placeholder results when the backend is unreachable")

	root.AddCommand(
		newServeCmd(flags),
		newLoginCmd(flags),
		newRegisterCmd(flags),
		newLogoutCmd(flags),
		newWhoamiCmd(flags),
		newWeatherCmd(flags),
		newSearchCmd(flags),
		newPredictCmd(flags),
		newDiseaseCmd(flags),
		newChatCmd(flags),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withSession builds the app for one command run and calls fn once a signed
// in user has been restored.
func withSession(flags *rootFlags, cmd *cobra.Command, fn func(a *app) error) error {
	a, err := newApp(flags.options())
	if err != nil {
		return err
	}
	defer a.Close()
	if _, err := a.requireSession(cmd.Context()); err != nil {
		return err
	}
	return fn(a)
}

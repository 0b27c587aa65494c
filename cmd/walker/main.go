package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	sloggger "github.com/gigaz-dev/walker/cmd/walker/log"
	"github.com/gigaz-dev/walker/internal/config"
	"github.com/spf13/cobra"
)

var (
	buildID   string
	buildTime string

	configDir string
)

var rootCmd = &cobra.Command{
	Use:   "walker",
	Short: "Keep game clients connected and walking their routes",
	Long: `walker runs one supervisor per configured profile. Each supervisor
connects a client, waits for it to spawn, walks the profile's waypoint route,
and reconnects after every disconnect, kick or error.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := config.Load(configDir); err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}
		if buildID != "" {
			config.Version = buildID
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", "config", "configuration directory")
	rootCmd.AddCommand(runCmd, initCmd, routeCmd)
}

// wrapWithRecover turns a panic in a top level goroutine into a logged error
// so the rest of the process can shut down cleanly.
func wrapWithRecover(logger *slog.Logger, f func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic recovered: %v", r)
				logger.Error(err.Error(), slog.String("stack", string(debug.Stack())))
				sloggger.FlushLog()
			}
		}()
		return f()
	}
}

func main() {
	_ = buildTime

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

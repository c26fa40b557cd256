package cli

import (
	"github.com/spf13/cobra"

	"github.com/aether-desk/aether/internal/daemon"
)

func init() {
	f := serveCmd.Flags()
	f.String("host", "", "Listen host (overrides api.host)")
	f.Int("port", 0, "Listen port (overrides api.port)")
	f.String("log-level", "", "debug, info, warn or error (overrides logging.level)")
	f.Bool("restore", false, "Re-apply the last wallpaper before the scheduler starts")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the wallpaper daemon in the foreground",
	Long: `Run the wallpaper daemon: the active slot, the scheduler, the power
governor and the control API (127.0.0.1:7421 unless configured). SIGINT or
SIGTERM stops the scheduler and, with stop_on_exit, the wallpaper.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return err
	}
	f := cmd.Flags()
	if host, _ := f.GetString("host"); host != "" {
		cfg.API.Host = host
	}
	if port, _ := f.GetInt("port"); port > 0 {
		cfg.API.Port = port
	}
	if lvl, _ := f.GetString("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}

	d, err := daemon.NewWithConfig(cfg)
	if err != nil {
		return err
	}
	defer d.Close()
	d.Restore, _ = f.GetBool("restore")

	return d.Serve(cmd.Context())
}

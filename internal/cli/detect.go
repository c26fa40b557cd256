package cli

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/aether-desk/aether/internal/infra/platform"
	"github.com/aether-desk/aether/internal/logging"
)

func init() {
	rootCmd.AddCommand(detectCmd)
}

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Show the platform strategy and which wallpaper tools are installed",
	Long: `Detect runs locally, without the daemon. It prints the strategy the
daemon would pick for this session and resolves each tool in its static
wallpaper chain.`,
	Args: cobra.NoArgs,
	RunE: runDetect,
}

func runDetect(cmd *cobra.Command, args []string) error {
	env := platform.HostEnv()
	m := platform.Detect(env, platform.Options{Log: logging.Discard()})

	w := newTable()
	fmt.Fprintf(w, "OS:\t%s/%s\n", runtime.GOOS, runtime.GOARCH)
	if runtime.GOOS != "windows" && runtime.GOOS != "darwin" {
		fmt.Fprintf(w, "Desktop:\t%s\n", platform.DesktopEnvironment(os.Getenv))
	}
	fmt.Fprintf(w, "Strategy:\t%s\n", m.Name())
	if win, ok := m.DesktopWindow(); ok {
		fmt.Fprintf(w, "Desktop window:\t0x%x\n", uint64(win))
	} else {
		fmt.Fprintf(w, "Desktop window:\tnone\n")
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	w = newTable()
	fmt.Fprintln(w, "TOOL\tPATH")
	found := 0
	for _, tool := range m.Tools() {
		path, err := exec.LookPath(tool)
		if err != nil {
			path = "not found"
		} else {
			found++
		}
		fmt.Fprintf(w, "%s\t%s\n", tool, path)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if found == 0 && len(m.Tools()) > 0 {
		fmt.Println("\nNo wallpaper tool found; static wallpapers will fail.")
	}
	return nil
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aether-desk/aether/internal/api"
	"github.com/aether-desk/aether/internal/domain"
)

func init() {
	applyCmd.Flags().StringVar(&applyName, "name", "", "Display name (default: file name)")
	applyCmd.Flags().StringVar(&applyDesc, "description", "", "Description")
	applyCmd.Flags().StringVar(&applyAuthor, "author", "", "Author")

	rootCmd.AddCommand(applyCmd, stopCmd, pauseCmd, resumeCmd, clearCmd, statusCmd)
}

var (
	applyName   string
	applyDesc   string
	applyAuthor string
)

var applyCmd = &cobra.Command{
	Use:   "apply TYPE PATH|URL",
	Short: "Replace the active wallpaper",
	Long: `Replace the active wallpaper. TYPE is one of static, video, web,
shader or audio. Web takes a URL; every other type takes a file path.`,
	Example: `  aether apply static ~/Pictures/lake.jpg
  aether apply video ~/Videos/rain.mp4
  aether apply web https://example.com/clock`,
	Args: cobra.ExactArgs(2),
	RunE: runApply,
}

func runApply(cmd *cobra.Command, args []string) error {
	spec, err := specFromArgs(args[0], args[1])
	if err != nil {
		return err
	}
	spec.Name = applyName
	if spec.Name == "" {
		spec.Name = filepath.Base(args[1])
	}
	spec.Description = applyDesc
	spec.Author = applyAuthor

	c, err := newClient()
	if err != nil {
		return err
	}
	a, err := c.Apply(cmd.Context(), spec)
	if err != nil {
		return err
	}
	fmt.Printf("Applied %s\n", describe(a))
	return nil
}

// specFromArgs builds a spec from a type name and its target. Paths are
// made absolute because the daemon may run in another directory.
func specFromArgs(typ, target string) (domain.WallpaperSpec, error) {
	t, err := domain.ParseWallpaperType(typ)
	if err != nil {
		return domain.WallpaperSpec{}, err
	}
	spec := domain.WallpaperSpec{Type: t}
	if t.UsesPath() {
		abs, err := filepath.Abs(target)
		if err != nil {
			return domain.WallpaperSpec{}, err
		}
		spec.Path = abs
	} else {
		spec.URL = target
	}
	return spec, spec.Validate()
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the active wallpaper",
	Args:  cobra.NoArgs,
	RunE: slotCommand("Stopped", func(ctx context.Context, c *api.Client) error {
		return c.Stop(ctx)
	}),
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the active wallpaper",
	Args:  cobra.NoArgs,
	RunE: slotCommand("Paused", func(ctx context.Context, c *api.Client) error {
		return c.Pause(ctx)
	}),
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused wallpaper",
	Args:  cobra.NoArgs,
	RunE: slotCommand("Resumed", func(ctx context.Context, c *api.Client) error {
		return c.Resume(ctx)
	}),
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Stop any wallpaper and reset the desktop background",
	Args:  cobra.NoArgs,
	RunE: slotCommand("Cleared", func(ctx context.Context, c *api.Client) error {
		return c.Clear(ctx)
	}),
}

func slotCommand(done string, fn func(context.Context, *api.Client) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := fn(cmd.Context(), c); err != nil {
			return err
		}
		fmt.Println(done)
		return nil
	}
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active wallpaper, scheduler and resource usage",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	st, err := c.Status(ctx)
	if err != nil {
		return err
	}
	h, err := c.Health(ctx)
	var apiErr *api.APIError
	if err != nil && !(errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound) {
		return err
	}

	w := newTable()
	fmt.Fprintf(w, "Platform:\t%s\n", st.Platform)
	if st.Active != nil {
		fmt.Fprintf(w, "Active:\t%s\n", describe(*st.Active))
		fmt.Fprintf(w, "Since:\t%s\n", st.Active.StartedAt.Local().Format("2006-01-02 15:04:05"))
	} else {
		fmt.Fprintf(w, "Active:\tnone\n")
	}
	state := "stopped"
	if st.Scheduler.Running {
		state = "running"
	}
	fmt.Fprintf(w, "Scheduler:\t%s, %d items, %d passes, %d fired, %d errors\n",
		state, st.Scheduler.Items, st.Scheduler.Passes, st.Scheduler.Fires, st.Scheduler.Errors)
	fmt.Fprintf(w, "Resources:\t%s memory, %s GPU, %d processes\n",
		humanSize(st.Usage.MemoryUsed), humanSize(st.Usage.GPUMemoryUsed), st.Usage.ActiveProcesses)
	for _, chk := range h.Checks {
		result := "ok"
		if !chk.Healthy {
			result = "FAIL " + chk.Error
			if chk.Recovered {
				result += " (recovered)"
			}
		}
		fmt.Fprintf(w, "Health %s:\t%s\n", chk.Name, result)
	}
	return w.Flush()
}

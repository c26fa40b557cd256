package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aether-desk/aether/internal/api"
	"github.com/aether-desk/aether/internal/domain"
	"github.com/aether-desk/aether/internal/schedulefile"
)

func init() {
	scheduleAddCmd.Flags().StringVar(&addName, "name", "", "Display name (default: file name)")
	scheduleAddCmd.Flags().BoolVar(&addDisabled, "disabled", false, "Add the item disabled")

	scheduleCmd.AddCommand(scheduleListCmd, scheduleAddCmd, scheduleRmCmd,
		scheduleEnableCmd, scheduleDisableCmd, scheduleImportCmd, scheduleExportCmd)
	rootCmd.AddCommand(scheduleCmd)
}

var (
	addName     string
	addDisabled bool
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage scheduled wallpapers",
}

var scheduleListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List schedule items in evaluation order",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		items, err := c.Schedule(cmd.Context())
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No schedule items. Run 'aether schedule add' to create one.")
			return nil
		}
		w := newTable()
		fmt.Fprintln(w, "ID\tTRIGGER\tENABLED\tTYPE\tNAME\tTARGET")
		for _, it := range items {
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\t%s\n",
				shortID(it.ID), it.Trigger, it.Enabled, it.Wallpaper.Type,
				displayName(it.Wallpaper), it.Wallpaper.Target())
		}
		return w.Flush()
	},
}

var scheduleAddCmd = &cobra.Command{
	Use:   "add TRIGGER TYPE PATH|URL",
	Short: "Add a schedule item",
	Long: `Add a schedule item. TRIGGER is kind:value, one of
  time:HH:MM           fire once when the clock reads HH:MM
  interval:DURATION    fire every DURATION (e.g. 30m)
  event:NAME           system event (recorded, never fired)
  custom:NAME          custom trigger (recorded, never fired)`,
	Example: `  aether schedule add time:08:00 static ~/Pictures/morning.jpg
  aether schedule add interval:45m shader ~/shaders/plasma.frag`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		trig, err := domain.ParseTrigger(args[0])
		if err != nil {
			return err
		}
		spec, err := specFromArgs(args[1], args[2])
		if err != nil {
			return err
		}
		spec.Name = addName
		if spec.Name == "" {
			spec.Name = filepath.Base(args[2])
		}

		c, err := newClient()
		if err != nil {
			return err
		}
		item, err := c.AddItem(cmd.Context(), domain.ScheduleItem{
			Trigger:   trig,
			Wallpaper: spec,
			Enabled:   !addDisabled,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Added %s (%s)\n", item.ID, item.Trigger)
		return nil
	},
}

var scheduleRmCmd = &cobra.Command{
	Use:     "rm ID",
	Aliases: []string{"remove"},
	Short:   "Remove a schedule item",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		id, err := resolveID(cmd, c, args[0])
		if err != nil {
			return err
		}
		if err := c.RemoveItem(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("Removed %s\n", id)
		return nil
	},
}

var scheduleEnableCmd = &cobra.Command{
	Use:   "enable ID",
	Short: "Enable a schedule item",
	Args:  cobra.ExactArgs(1),
	RunE:  setEnabled(true),
}

var scheduleDisableCmd = &cobra.Command{
	Use:   "disable ID",
	Short: "Disable a schedule item",
	Args:  cobra.ExactArgs(1),
	RunE:  setEnabled(false),
}

func setEnabled(enabled bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		id, err := resolveID(cmd, c, args[0])
		if err != nil {
			return err
		}
		item, err := c.SetEnabled(cmd.Context(), id, enabled)
		if err != nil {
			return err
		}
		fmt.Printf("%s enabled=%t\n", item.ID, item.Enabled)
		return nil
	}
}

var scheduleImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace the schedule with the items in a YAML or JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := schedulefile.ReadFile(args[0])
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		stored, err := c.ReplaceSchedule(cmd.Context(), items)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d items from %s\n", len(stored), args[0])
		return nil
	},
}

var scheduleExportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Write the schedule to a YAML or JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		items, err := c.Schedule(cmd.Context())
		if err != nil {
			return err
		}
		if err := schedulefile.WriteFile(args[0], items); err != nil {
			return err
		}
		fmt.Printf("Exported %d items to %s\n", len(items), args[0])
		return nil
	},
}

// shortID abbreviates uuids for table output; resolveID accepts the prefix.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// resolveID expands a unique id prefix to the full id.
func resolveID(cmd *cobra.Command, c *api.Client, prefix string) (string, error) {
	items, err := c.Schedule(cmd.Context())
	if err != nil {
		return "", err
	}
	var match string
	for _, it := range items {
		if it.ID == prefix {
			return it.ID, nil
		}
		if strings.HasPrefix(it.ID, prefix) {
			if match != "" {
				return "", fmt.Errorf("ambiguous id %q", prefix)
			}
			match = it.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", domain.ErrScheduleItemNotFound, prefix)
	}
	return match, nil
}

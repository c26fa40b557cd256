package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/aether-desk/aether/internal/daemon"
	"github.com/aether-desk/aether/internal/domain"
)

func init() {
	for _, c := range []*cobra.Command{resourcesRegisterCmd, resourcesUpdateCmd} {
		c.Flags().String("memory", "0", "Memory, e.g. 64MB")
		c.Flags().String("gpu-memory", "0", "GPU memory, e.g. 32MB")
		c.Flags().Float64("cpu", 0, "CPU percent")
		c.Flags().Int("processes", 0, "Process count")
	}
	resourcesCmd.AddCommand(resourcesShowCmd, resourcesRegisterCmd, resourcesUpdateCmd, resourcesUnregisterCmd)
	rootCmd.AddCommand(resourcesCmd)
}

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "Inspect and manage resource accounting",
}

var resourcesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show usage against limits and every registered consumer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		r, err := c.Resources(cmd.Context())
		if err != nil {
			return err
		}

		w := newTable()
		fmt.Fprintln(w, "RESOURCE\tUSED\tLIMIT\tUTILIZATION")
		fmt.Fprintf(w, "memory\t%s\t%s\t%.1f%%\n", humanSize(r.Usage.MemoryUsed), humanSize(r.Limits.MaxMemory), r.Utilization.Memory)
		fmt.Fprintf(w, "gpu memory\t%s\t%s\t%.1f%%\n", humanSize(r.Usage.GPUMemoryUsed), humanSize(r.Limits.MaxGPUMemory), r.Utilization.GPUMemory)
		fmt.Fprintf(w, "cpu\t%.1f%%\t%.1f%%\t%.1f%%\n", r.Usage.CPUUsage, r.Limits.MaxCPU, r.Utilization.CPU)
		fmt.Fprintf(w, "processes\t%d\t%d\t\n", r.Usage.ActiveProcesses, r.Limits.MaxProcesses)
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\nWithin limits: %t  (allocated %d, freed %d)\n", r.WithinLimits, r.Allocated, r.Freed)

		if len(r.Entries) == 0 {
			return nil
		}
		ids := make([]string, 0, len(r.Entries))
		for id := range r.Entries {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		fmt.Println()
		w = newTable()
		fmt.Fprintln(w, "ID\tMEMORY\tGPU\tCPU\tPROCESSES")
		for _, id := range ids {
			u := r.Entries[id]
			fmt.Fprintf(w, "%s\t%s\t%s\t%.1f%%\t%d\n", id,
				humanSize(u.MemoryUsed), humanSize(u.GPUMemoryUsed), u.CPUUsage, u.ActiveProcesses)
		}
		return w.Flush()
	},
}

var resourcesRegisterCmd = &cobra.Command{
	Use:   "register ID",
	Short: "Register a resource consumer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := usageFromFlags(cmd)
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Register(cmd.Context(), args[0], u); err != nil {
			return err
		}
		fmt.Printf("Registered %s\n", args[0])
		return nil
	},
}

var resourcesUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Replace a consumer's usage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := usageFromFlags(cmd)
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.UpdateResource(cmd.Context(), args[0], u); err != nil {
			return err
		}
		fmt.Printf("Updated %s\n", args[0])
		return nil
	},
}

var resourcesUnregisterCmd = &cobra.Command{
	Use:   "unregister ID",
	Short: "Release a consumer's usage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		u, err := c.Unregister(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Released %s: %s memory, %d processes\n", args[0], humanSize(u.MemoryUsed), u.ActiveProcesses)
		return nil
	},
}

func usageFromFlags(cmd *cobra.Command) (domain.ResourceUsage, error) {
	var u domain.ResourceUsage
	f := cmd.Flags()

	mem, _ := f.GetString("memory")
	v, err := daemon.ParseSize(mem)
	if err != nil {
		return u, err
	}
	u.MemoryUsed = v

	gpu, _ := f.GetString("gpu-memory")
	if u.GPUMemoryUsed, err = daemon.ParseSize(gpu); err != nil {
		return u, err
	}
	u.CPUUsage, _ = f.GetFloat64("cpu")
	u.ActiveProcesses, _ = f.GetInt("processes")
	return u, nil
}

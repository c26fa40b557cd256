package process

import (
	"context"
	"sort"

	"github.com/shirou/gopsutil/v3/process"
)

// Info is one row of the process table.
type Info struct {
	PID     int
	PPID    int
	Name    string
	Cmdline string
}

// Lister snapshots the process table.
type Lister interface {
	Processes(ctx context.Context) ([]Info, error)
}

// GopsutilLister reads the process table through gopsutil.
type GopsutilLister struct{}

// Processes implements Lister. Rows are sorted by PID; processes that
// vanish mid-scan or hide their name are skipped.
func (GopsutilLister) Processes(ctx context.Context) ([]Info, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Info, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		cmdline, _ := p.CmdlineWithContext(ctx)
		ppid, _ := p.PpidWithContext(ctx)
		out = append(out, Info{PID: int(p.Pid), PPID: int(ppid), Name: name, Cmdline: cmdline})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out, nil
}

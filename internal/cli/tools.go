package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"filethings/internal/tools"
	"filethings/internal/tui"
)

var toolsProbeTimeout time.Duration

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect external tools and models",
	}
	cmd.AddCommand(newToolsListCmd())
	return cmd
}

func newToolsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Probe every registered tool and show its status",
		Args:  cobra.NoArgs,
		RunE:  runToolsList,
	}
	cmd.Flags().DurationVar(&toolsProbeTimeout, "timeout", 10*time.Second, "Per-tool probe timeout")
	return cmd
}

func runToolsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	svc, closer, err := openServices(cmd)
	if err != nil {
		return err
	}
	defer closer.Close()

	var status *tui.StatusWriter
	if !outputJSON && tui.DetectMode(cmd.ErrOrStderr(), false, false) == tui.ModeTUI {
		status = tui.NewStatusWriter(cmd.ErrOrStderr(), "Probing tools...")
	}
	statuses, err := svc.ProbeTools(ctx, toolsProbeTimeout)
	if status != nil {
		status.Stop()
	}
	if err != nil {
		return err
	}

	if outputJSON {
		return printJSON(cmd, statuses)
	}
	printStatusTable(cmd, statuses)
	return nil
}

func printStatusTable(cmd *cobra.Command, statuses []tools.Status) {
	if len(statuses) == 0 {
		cmd.Println("(no tools registered)")
		return
	}

	rows := make([]tools.Status, len(statuses))
	copy(rows, statuses)
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Tool < rows[j].Tool
	})

	cmd.Printf("%-28s %-11s %-14s %-4s %s\n", "Tool", "Type", "Version", "OK", "Path")
	for _, st := range rows {
		ok := "no"
		if st.Available && st.Satisfied {
			ok = "yes"
		}
		path := st.Path
		if path == "" {
			path = "(missing)"
		}
		okCol := tui.StateStyle(ok).Render(fmt.Sprintf("%-4s", ok))
		cmd.Printf("%-28s %-11s %-14s %s %s\n", st.Tool, st.Type, nonEmptyOrDash(st.Version), okCol, path)
		if st.Error != "" {
			cmd.Printf("  error: %s\n", st.Error)
		}
	}
}

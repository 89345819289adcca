package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"filethings/internal/app"
	"filethings/internal/tui"
	"filethings/internal/updater"
)

var updateNoProgress bool

type updateOutcome struct {
	Kind    string `json:"kind"`
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "update [functions|i18n|all]",
		Short:     "Pull the latest function catalog and translations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{updater.KindFunctions, updater.KindI18n, "all"},
		RunE:      runUpdate,
	}
	cmd.Flags().BoolVar(&updateNoProgress, "no-progress", false, "Print one line per step instead of the live table")
	cmd.AddCommand(newUpdateInstallerCmd())
	return cmd
}

func newUpdateInstallerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "installer <version>",
		Short: "Download the Windows installer for a release",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			svc, closer, err := openServices(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()

			path, err := svc.Updater.DownloadWindowsInstaller(ctx, args[0])
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(cmd, map[string]string{"path": path})
			}
			cmd.Printf("Installer downloaded to %s\n", path)
			return nil
		},
	}
}

func updateKinds(args []string) []string {
	if len(args) == 0 || args[0] == "all" {
		return []string{updater.KindFunctions, updater.KindI18n}
	}
	return []string{args[0]}
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	svc, closer, err := openServices(cmd)
	if err != nil {
		return err
	}
	defer closer.Close()

	kinds := updateKinds(args)
	var outcomes []updateOutcome
	work := func(rep updater.Reporter) error {
		svc.Updater.Reporter = rep
		outcomes = runUpdates(ctx, svc, kinds)
		return nil
	}

	out := cmd.OutOrStdout()
	switch tui.DetectMode(out, updateNoProgress, outputJSON) {
	case tui.ModeJSON:
		_ = work(nil)
		return printJSON(cmd, outcomes)
	case tui.ModeTUI:
		model := tui.NewUpdateModel("Updating resources", kinds...)
		if err := tui.Run(out, model, func(rep *tui.Reporter) error { return work(rep) }); err != nil {
			return err
		}
	default:
		_ = work(tui.PlainReporter{Printf: cmd.Printf})
	}

	failed := 0
	for _, o := range outcomes {
		if o.Error != "" {
			failed++
			cmd.PrintErrf("%s: %s\n", o.Kind, o.Error)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d updates failed", failed, len(outcomes))
	}
	return nil
}

// runUpdates runs each kind in turn; one failure does not stop the rest.
func runUpdates(ctx context.Context, svc *app.Services, kinds []string) []updateOutcome {
	outcomes := make([]updateOutcome, 0, len(kinds))
	for _, kind := range kinds {
		res, err := svc.Updater.Update(ctx, kind)
		o := updateOutcome{Kind: kind, Status: res.Status, Version: res.Version, Message: res.Message}
		if err != nil {
			o.Status = "error"
			o.Error = err.Error()
		} else if kind == updater.KindFunctions && res.Status == updater.StatusOK {
			if _, err := svc.ReloadFunctions(); err != nil {
				svc.Log.Error("functions", "reload after update failed", "err", err)
			}
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}

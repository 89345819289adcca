package cli

import (
	"github.com/spf13/cobra"
)

type pathsReport struct {
	AppData       string `json:"app_data"`
	Resources     string `json:"resources"`
	Settings      string `json:"settings"`
	Logs          string `json:"logs"`
	Downloads     string `json:"downloads"`
	Temp          string `json:"temp"`
	Functions     string `json:"functions"`
	I18n          string `json:"i18n"`
	Templates     string `json:"templates"`
	Fonts         string `json:"fonts,omitempty"`
	AppVersion    string `json:"app_version"`
	VersionDir    string `json:"version_dir"`
}

func newPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Show the directories the service reads and writes",
		Args:  cobra.NoArgs,
		RunE:  runPaths,
	}
}

func runPaths(cmd *cobra.Command, _ []string) error {
	svc, closer, err := openServices(cmd)
	if err != nil {
		return err
	}
	defer closer.Close()

	r := svc.Paths
	report := pathsReport{
		AppData:       r.AppDataDir(),
		Resources:     r.ResourcesDir(),
		Settings:      r.SettingsFile(),
		Logs:          r.LogsDir(),
		Downloads:     r.DownloadDir(),
		Temp:          r.TempDir(),
		Functions:     r.FunctionDirUsing(),
		I18n:          r.I18nDirUsing(),
		Templates:     r.TemplateDirUsing(),
		AppVersion:    r.AppVersion(),
		VersionDir   : r.AppVerDirname(),
	}
	if fonts, err := r.FontDir(); err == nil {
		report.Fonts = fonts
	}

	if outputJSON {
		return printJSON(cmd, report)
	}
	rows := [][2]string{
		{"App data", report.AppData},
		{"Resources", report.Resources},
		{"Settings", report.Settings},
		{"Logs", report.Logs},
		{"Downloads", report.Downloads},
		{"Temp", report.Temp},
		{"Functions", report.Functions},
		{"I18n", report.I18n},
		{"Templates", report.Templates},
		{"Fonts", nonEmptyOrDash(report.Fonts)},
		{"App version", report.AppVersion},
	}
	for _, row := range rows {
		cmd.Printf("%-12s %s\n", row[0]+":", row[1])
	}
	return nil
}

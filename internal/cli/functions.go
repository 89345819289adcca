package cli

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"filethings/internal/functions"
)

var functionsExts []string

func newFunctionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "functions",
		Short: "Inspect loaded file functions",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List file functions admitted on this platform and app version",
		Args:  cobra.NoArgs,
		RunE:  runFunctionsList,
	}
	list.Flags().StringSliceVar(&functionsExts, "ext", nil, "Only functions supporting these extensions (e.g. png,/dir)")
	cmd.AddCommand(list)
	return cmd
}

func runFunctionsList(cmd *cobra.Command, _ []string) error {
	svc, closer, err := openServices(cmd)
	if err != nil {
		return err
	}
	defer closer.Close()

	all, err := svc.Files.List()
	if err != nil {
		return err
	}
	rows := make([]functions.FileFunction, 0, len(all))
	if len(functionsExts) > 0 {
		supported, err := functions.SupportedFunctions(svc.Files, functionsExts)
		if err != nil {
			return err
		}
		for _, fn := range supported.Items {
			rows = append(rows, fn)
		}
	} else {
		for _, fn := range all {
			rows = append(rows, fn)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })

	if outputJSON {
		return printJSON(cmd, rows)
	}
	printFunctionTable(cmd, rows)
	return nil
}

func printFunctionTable(cmd *cobra.Command, rows []functions.FileFunction) {
	if len(rows) == 0 {
		cmd.Println("(no file functions)")
		return
	}
	cmd.Printf("%-36s %-10s %s\n", "Name", "Version", "Extensions")
	for _, fn := range rows {
		cmd.Printf("%-36s %-10s %s\n", fn.Name, nonEmptyOrDash(fn.Profile.Version), strings.Join(fn.Matches.Extensions.Sorted(), ","))
	}
}

func nonEmptyOrDash(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return value
}

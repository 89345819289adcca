package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"filethings/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect settings and the UI and file-function config stores",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigSetCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective service settings in YAML",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <scope> [key...]",
		Short: "Print a config store, or only the given keys",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runConfigGet,
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <scope> <json-object>",
		Short: "Merge a JSON object into a config store",
		Args:  cobra.ExactArgs(2),
		RunE:  runConfigSet,
	}
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	svc, closer, err := openServices(cmd)
	if err != nil {
		return err
	}
	defer closer.Close()

	if outputJSON {
		return printJSON(cmd, svc.Settings)
	}
	data, err := svc.Settings.Marshal()
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	if len(data) == 0 || data[len(data)-1] != '\n' {
		fmt.Fprintln(cmd.OutOrStdout())
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	action, params := "get_all", ""
	if len(args) > 1 {
		keys, err := json.Marshal(args[1:])
		if err != nil {
			return err
		}
		action, params = "get", string(keys)
	}
	return configCall(cmd, args[0], action, params)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	return configCall(cmd, args[0], "set", args[1])
}

func configCall(cmd *cobra.Command, scope, action, params string) error {
	svc, closer, err := openServices(cmd)
	if err != nil {
		return err
	}
	defer closer.Close()

	out, err := svc.Stores.Call(scope, action, params)
	if err != nil {
		var ce *config.CallError
		if errors.As(err, &ce) {
			return errors.New(ce.Msg)
		}
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"filethings/internal/actions"
	"filethings/internal/command"
	"filethings/internal/config"
)

var actionWorker bool

func newActionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "action <name> [params-json]",
		Short: "Run one action and print its JSON result",
		Long: "Run one action the way the UI would and print its JSON result.\n" +
			"With --worker the call goes through the worker-script command gate instead.",
		Args: cobra.RangeArgs(1, 2),
		RunE: runAction,
	}
	cmd.Flags().BoolVar(&actionWorker, "worker", false, "Invoke through the worker-script command gate")
	return cmd
}

func runAction(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	params := "{}"
	if len(args) == 2 {
		params = args[1]
	}

	svc, closer, err := openServices(cmd)
	if err != nil {
		return err
	}
	defer closer.Close()

	router := actions.New(svc, command.New(svc))
	var out string
	if actionWorker {
		out, err = router.Invoke(ctx, args[0], params)
	} else {
		out, err = router.Route(ctx, args[0], params)
	}
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

func newCommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List built-in command names",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closer, err := openServices(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()

			names := command.New(svc).Names()
			if outputJSON {
				return printJSON(cmd, names)
			}
			for _, name := range names {
				cmd.Println(name)
			}
			return nil
		},
	}
}

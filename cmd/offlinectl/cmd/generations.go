package cmd

import (
	"fmt"

	"fakestore-offline/internal/bootstrap"
	"fakestore-offline/internal/service"

	"github.com/spf13/cobra"
)

func newGenerationsCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "generations",
		Short: "List cache generations",
		Long:  "List every live cache generation and mark the one in control.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd, open, func(stores *bootstrap.Stores) error {
				return runGenerations(cmd, stores)
			})
		},
	}
}

func runGenerations(cmd *cobra.Command, stores *bootstrap.Stores) error {
	ctx := cmd.Context()
	generations, err := stores.Cache.ListGenerations(ctx)
	if err != nil {
		return err
	}

	updates := service.NewUpdateCoordinator(ctx, stores.Cache, stores.Records, nil)
	state := updates.State()

	out := cmd.OutOrStdout()
	if len(generations) == 0 {
		fmt.Fprintln(out, "(no generations)")
	}
	for _, g := range generations {
		mark := " "
		switch g {
		case state.CurrentGeneration:
			mark = "*"
		case state.PendingGeneration:
			mark = "+"
		}
		fmt.Fprintf(out, "%s %s\n", mark, g)
	}
	if state.Phase != "" {
		fmt.Fprintf(out, "phase: %s\n", state.Phase)
	}
	return nil
}

package cmd

import (
	"fmt"

	"fakestore-offline/internal/bootstrap"
	"fakestore-offline/internal/service"

	"github.com/spf13/cobra"
)

func newEvictCmd(open Opener) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "evict <generation>",
		Short: "Evict a cache generation",
		Long:  "Remove every entry of a generation in one step. The generation in control is kept unless --force is given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd, open, func(stores *bootstrap.Stores) error {
				return runEvict(cmd, stores, args[0], force)
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "evict even the generation in control")
	return cmd
}

func runEvict(cmd *cobra.Command, stores *bootstrap.Stores, generation string, force bool) error {
	ctx := cmd.Context()
	updates := service.NewUpdateCoordinator(ctx, stores.Cache, stores.Records, nil)
	if generation == updates.CurrentGeneration() && !force {
		return fmt.Errorf("%s is the generation in control; use --force to evict it", generation)
	}

	if err := stores.Cache.EvictGeneration(ctx, generation); err != nil {
		return fmt.Errorf("evict %s: %w", generation, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "evicted %s\n", generation)
	return nil
}

package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"fakestore-offline/internal/bootstrap"
	"fakestore-offline/internal/model"
	"fakestore-offline/internal/service"

	"github.com/spf13/cobra"
)

func newCartCmd(open Opener) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Print the stored cart",
		Long:  "Print the durable cart snapshot with its totals.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd, open, func(stores *bootstrap.Stores) error {
				cart, err := loadCart(cmd, stores)
				if err != nil {
					return err
				}
				return printCart(cmd, cart.State(), asJSON)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw snapshot")

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Empty the stored cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd, open, func(stores *bootstrap.Stores) error {
				cart, err := loadCart(cmd, stores)
				if err != nil {
					return err
				}
				state, err := cart.ClearCart(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cart cleared (version %d)\n", state.Version)
				return nil
			})
		},
	})
	return cmd
}

func loadCart(cmd *cobra.Command, stores *bootstrap.Stores) (*service.CartStore, error) {
	cart := service.NewCartStore(stores.Records)
	if err := cart.Hydrate(cmd.Context()); err != nil {
		return nil, err
	}
	return cart, nil
}

func printCart(cmd *cobra.Command, state model.CartState, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		data, err := service.EncodeCartSnapshot(state)
		if err != nil {
			return err
		}
		var pretty json.RawMessage = data
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(pretty)
	}

	if len(state.Items) == 0 {
		fmt.Fprintf(out, "(empty cart, version %d)\n", state.Version)
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tQTY\tUNIT PRICE")
	for _, item := range state.Items {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", item.ID, item.Title, item.Quantity, item.UnitPrice.StringFixed(2))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	totals := state.Totals()
	fmt.Fprintf(out, "items: %d  total: %s  version: %d\n", totals.ItemCount, totals.Total.StringFixed(2), state.Version)
	return nil
}

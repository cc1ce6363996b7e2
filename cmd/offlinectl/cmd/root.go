// Package cmd implements offlinectl, the maintenance CLI for the gateway's
// durable stores.
package cmd

import (
	"context"
	"os"

	"fakestore-offline/internal/bootstrap"
	"fakestore-offline/internal/config"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Opener opens the stores a command works on.
type Opener func(ctx context.Context) (*bootstrap.Stores, error)

// loadAndOpen reads the gateway configuration and opens its backends.
func loadAndOpen(envFile string) Opener {
	return func(ctx context.Context) (*bootstrap.Stores, error) {
		if envFile != "" {
			if err := godotenv.Overload(envFile); err != nil {
				return nil, err
			}
		}
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		return bootstrap.Open(ctx, cfg)
	}
}

// NewRootCmd builds the command tree. A nil open uses the gateway configuration.
func NewRootCmd(open Opener) *cobra.Command {
	var envFile string
	var verbose bool

	root := &cobra.Command{
		Use:           "offlinectl",
		Short:         "Fake Store offline gateway maintenance",
		Long:          "Inspect and maintain the response cache and the stored cart of the offline gateway.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.SetLevel(log.DebugLevel)
			} else {
				log.SetLevel(log.WarnLevel)
			}
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "load settings from this file before the environment")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log backend activity")

	if open == nil {
		open = func(ctx context.Context) (*bootstrap.Stores, error) {
			return loadAndOpen(envFile)(ctx)
		}
	}

	root.AddCommand(
		newGenerationsCmd(open),
		newEvictCmd(open),
		newCartCmd(open),
	)
	return root
}

// Execute runs offlinectl with the process arguments.
func Execute() {
	root := NewRootCmd(nil)
	if err := root.Execute(); err != nil {
		root.PrintErrln("Error:", err)
		os.Exit(1)
	}
}

// withStores opens the stores for one command and closes them afterwards.
func withStores(cmd *cobra.Command, open Opener, fn func(*bootstrap.Stores) error) (err error) {
	stores, err := open(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stores.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(stores)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/san-kum/cellsim/internal/memo"
)

func cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "manage the simulation result cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "show cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := app.cache.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("backend: %s\n%s\n", app.cfg.Cache.Backend, stats)
			if app.cfg.Cache.Backend != memo.BackendSQLite || noCache {
				fmt.Println("the memory cache starts empty in every process; set cache.backend: sqlite to keep results and counters")
			}
			return nil
		},
	}, &cobra.Command{
		Use:   "purge",
		Short: "drop every cached result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.cache.Purge(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("cache purged")
			return nil
		},
	})
	return cmd
}

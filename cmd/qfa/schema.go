package main

import (
	"github.com/spf13/cobra"

	"github.com/rodekruis/qfa/internal/cache"
)

// NewSchemaCmd groups the cache management commands.
func NewSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage cached taxonomies",
	}
	cmd.AddCommand(newSchemaLoadCmd())
	cmd.AddCommand(newSchemaDeleteCmd())
	cmd.AddCommand(newSchemaShowCmd())
	cmd.AddCommand(newSchemaListCmd())
	return cmd
}

func newSchemaLoadCmd() *cobra.Command {
	var of originFlags
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Fetch a taxonomy from its origin and store it, replacing any cached copy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			origin, err := of.origin()
			if err != nil {
				return err
			}
			if err := requireLevels(origin); err != nil {
				return err
			}
			a, err := openApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			tree, err := a.engine.Refresh(cmd.Context(), origin)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"key":            cache.KeyFor(origin.System, origin.ID).String(),
				"levels":         tree.Levels(),
				"records":        tree.Len(),
				"version_marker": tree.VersionMarker(),
			})
		},
	}
	of.register(cmd)
	return cmd
}

func newSchemaDeleteCmd() *cobra.Command {
	var of originFlags
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove a cached taxonomy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			origin, err := of.origin()
			if err != nil {
				return err
			}
			a, err := openApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.engine.Delete(cmd.Context(), origin)
		},
	}
	of.register(cmd)
	return cmd
}

func newSchemaShowCmd() *cobra.Command {
	var of originFlags
	var noRefresh bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the records of a taxonomy, reloading it first if it is stale",
		RunE: func(cmd *cobra.Command, _ []string) error {
			origin, err := of.origin()
			if err != nil {
				return err
			}
			a, err := openApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if noRefresh {
				tree, err := a.store.Load(cmd.Context(), cache.KeyFor(origin.System, origin.ID))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), tree.Records())
			}
			if err := requireLevels(origin); err != nil {
				return err
			}
			tree, err := a.engine.Schema(cmd.Context(), origin)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), tree.Records())
		},
	}
	of.register(cmd)
	cmd.Flags().BoolVar(&noRefresh, "cached", false, "Print the cached copy without contacting the origin")
	return cmd
}

func newSchemaListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached taxonomies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.store.List(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), entries)
		},
	}
}

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pawsen/library-org/internal/catalog"
)

func newLocationsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "locations",
		Aliases: []string{"location"},
		Short:   "Manage shelf locations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List locations by label",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(cmd.Context(), func(svc *catalog.Service) error {
				locs, err := svc.ListLocations(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(locs))
				for _, l := range locs {
					rows = append(rows, []string{strconv.FormatUint(uint64(l.ID), 10), l.LabelName, l.FullName})
				}
				printRows(cmd.OutOrStdout(), []string{"ID", "Label", "Full name"}, rows, []columnAlignment{alignRight})
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <label> [full name...]",
		Short: "Create a location",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := catalog.LocationInput{LabelName: args[0], FullName: strings.Join(args[1:], " ")}
			return ctx.withCatalog(cmd.Context(), func(svc *catalog.Service) error {
				loc, err := svc.CreateLocation(cmd.Context(), in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created location %d (%s)\n", loc.ID, loc.LabelName)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a location; its books show as Unknown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withCatalog(cmd.Context(), func(svc *catalog.Service) error {
				if err := svc.DeleteLocation(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted location %d\n", id)
				return nil
			})
		},
	})

	return cmd
}

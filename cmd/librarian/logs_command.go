package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pawsen/library-org/internal/catalog"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the transaction log, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(cmd.Context(), func(svc *catalog.Service) error {
				entries, err := svc.ListLogs(cmd.Context(), limit)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					bookID := ""
					if e.BookID != nil {
						bookID = strconv.FormatUint(uint64(*e.BookID), 10)
					}
					rows = append(rows, []string{
						strconv.FormatUint(uint64(e.ID), 10),
						e.Timestamp.Local().Format("2006-01-02 15:04:05"),
						e.Action,
						bookID,
						e.BookTitle,
						e.Details,
					})
				}
				printRows(cmd.OutOrStdout(), []string{"ID", "Time", "Action", "Book", "Title", "Details"}, rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight})
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Number of entries (0 for all)")

	cmd.AddCommand(&cobra.Command{
		Use:   "restore <log-id>",
		Short: "Recreate a deleted book from its DELETE entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withCatalog(cmd.Context(), func(svc *catalog.Service) error {
				book, err := svc.RestoreBook(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Restored %q as book %d\n", book.Title, book.ID)
				return nil
			})
		},
	})
	return cmd
}

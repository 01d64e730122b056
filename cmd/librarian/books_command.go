package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pawsen/library-org/internal/catalog"
)

func newBooksCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "Browse and manage catalogued books",
	}
	cmd.AddCommand(newBooksListCommand(ctx))
	cmd.AddCommand(newBooksShowCommand(ctx))
	cmd.AddCommand(newBooksDeleteCommand(ctx))
	return cmd
}

func newBooksListCommand(ctx *commandContext) *cobra.Command {
	var q catalog.Query

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books, optionally filtered by a search term",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(cmd.Context(), func(svc *catalog.Service) error {
				page, err := svc.ListBooks(cmd.Context(), q)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(page.Items))
				for _, b := range page.Items {
					rows = append(rows, []string{
						strconv.FormatUint(uint64(b.ID), 10),
						b.Title,
						b.Authors,
						b.ISBN,
						b.PublishDate,
						b.LocationLabel,
					})
				}
				out := cmd.OutOrStdout()
				printRows(out, []string{"ID", "Title", "Authors", "ISBN", "Published", "Location"}, rows,
					[]columnAlignment{alignRight})
				fmt.Fprintf(cmd.ErrOrStderr(), "page %d of %d, %d books\n", page.Page, page.TotalPages(), page.Total)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&q.Search, "search", "s", "", "Match title, authors, subjects or ISBN")
	cmd.Flags().StringVar(&q.SortBy, "sort", "title", "Sort column (id, title, authors, publish_date, isbn, number_of_pages)")
	cmd.Flags().StringVar(&q.SortOrder, "order", "asc", "Sort order (asc or desc)")
	cmd.Flags().IntVar(&q.Page, "page", 1, "Page number")
	cmd.Flags().IntVar(&q.PerPage, "per-page", 0, "Books per page (default from config)")
	return cmd
}

func newBooksShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show every field of one book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withCatalog(cmd.Context(), func(svc *catalog.Service) error {
				b, err := svc.GetBook(cmd.Context(), id)
				if err != nil {
					return err
				}
				dewey := ""
				if b.DeweyDecimalClass != nil {
					dewey = *b.DeweyDecimalClass
				}
				rows := [][]string{
					{"ID", strconv.FormatUint(uint64(b.ID), 10)},
					{"ISBN", b.ISBN},
					{"Title", b.Title},
					{"Authors", b.Authors},
					{"Published", b.PublishDate},
					{"Pages", b.NumberOfPages},
					{"Subjects", b.Subjects},
					{"Dewey", dewey},
					{"Location", b.LocationLabel},
					{"Preview", b.OpenLibraryPreviewURL},
					{"Thumbnail", b.OpenLibraryMedcoverURL},
				}
				printRows(cmd.OutOrStdout(), []string{"Field", "Value"}, rows, nil)
				return nil
			})
		},
	}
}

func newBooksDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a book; it can be restored from the log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withCatalog(cmd.Context(), func(svc *catalog.Service) error {
				if err := svc.DeleteBook(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted book %d\n", id)
				return nil
			})
		},
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pawsen/library-org/internal/catalog"
)

func newLookupCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "lookup <isbn>",
		Short: "Fetch book metadata from Open Library, then Google Books",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(cmd.Context(), func(svc *catalog.Service) error {
				rec, err := svc.Lookup(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(rec)
				}

				rows := [][]string{
					{"Title", rec.Title},
					{"Authors", strings.Join(rec.Authors, ", ")},
					{"Published", rec.PublishedDate},
					{"Subjects", strings.Join(rec.Subjects, ", ")},
					{"Pages", pagesText(rec.NumberOfPages)},
					{"Preview", rec.PreviewLink},
					{"Thumbnail", rec.Thumbnail},
					{"Source", rec.Source},
				}
				printRows(out, []string{"Field", "Value"}, rows, nil)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the record as JSON")
	return cmd
}

func pagesText(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 0)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(id), nil
}

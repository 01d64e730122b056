package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pawsen/library-org/internal/catalog"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var (
		file       string
		locationID uint
	)

	cmd := &cobra.Command{
		Use:   "import [isbn...]",
		Short: "Look up ISBNs and add each found book to a location",
		Long: "Reads ISBNs from the arguments or, with --file, one per line (use - for stdin).\n" +
			"Books already in the catalog and ISBNs without metadata are reported and skipped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if locationID == 0 {
				return errors.New("--location is required")
			}
			codes := args
			if file != "" {
				fromFile, err := readISBNList(file, cmd.InOrStdin())
				if err != nil {
					return err
				}
				codes = append(codes, fromFile...)
			}
			if len(codes) == 0 {
				return errors.New("no ISBNs given")
			}

			return ctx.withCatalog(cmd.Context(), func(svc *catalog.Service) error {
				out := cmd.OutOrStdout()
				var added, skipped int
				for _, code := range codes {
					status := importOne(cmd, svc, code, locationID)
					if strings.HasPrefix(status, "added") {
						added++
					} else {
						skipped++
					}
					fmt.Fprintf(out, "%s\t%s\n", code, status)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "%d added, %d skipped\n", added, skipped)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "File with one ISBN per line")
	cmd.Flags().UintVarP(&locationID, "location", "l", 0, "Location id for the new books")
	return cmd
}

func importOne(cmd *cobra.Command, svc *catalog.Service, code string, locationID uint) string {
	ctx := cmd.Context()
	rec, err := svc.Lookup(ctx, code)
	if err != nil {
		return "skipped: " + err.Error()
	}
	if rec.Title == "" || len(rec.Authors) == 0 {
		return "skipped: incomplete metadata"
	}

	view, err := svc.AddBook(ctx, catalog.BookInput{
		ISBN:          code,
		Title:         rec.Title,
		Authors:       strings.Join(rec.Authors, ", "),
		PublishDate:   rec.PublishedDate,
		Subjects:      strings.Join(rec.Subjects, ", "),
		NumberOfPages: pagesText(rec.NumberOfPages),
		ThumbnailURL:  rec.Thumbnail,
		PreviewURL:    rec.PreviewLink,
		LocationID:    &locationID,
	})
	var dup *catalog.DuplicateISBNError
	switch {
	case errors.As(err, &dup):
		return fmt.Sprintf("skipped: already catalogued as book %d", dup.ExistingID)
	case err != nil:
		return "skipped: " + err.Error()
	}
	return fmt.Sprintf("added as book %d (%s)", view.ID, view.Title)
}

func readISBNList(path string, stdin io.Reader) ([]string, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	var codes []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		codes = append(codes, line)
	}
	return codes, scanner.Err()
}

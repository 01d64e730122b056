package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pawsen/library-org/internal/isbn"
)

var errInvalidISBNs = errors.New("one or more ISBNs are invalid")

func newISBNCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "isbn <isbn>...",
		Short:       "Check ISBN-10 and ISBN-13 check digits",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := false
			for _, raw := range args {
				code := isbn.Normalize(raw)
				if isbn.Valid(code) {
					fmt.Fprintf(out, "%s\tvalid\t%s\n", raw, code)
				} else {
					failed = true
					fmt.Fprintf(out, "%s\tinvalid\n", raw)
				}
			}
			if failed {
				return errInvalidISBNs
			}
			return nil
		},
	}
}

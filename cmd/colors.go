package cmd

import (
	"fmt"
	"io"

	"github.com/smazurov/rgbnode/internal/color"
	"github.com/spf13/cobra"
)

// CreateColorsCmd creates the colors command. Without arguments it lists
// the named colors; otherwise it resolves each token like the sequence
// command does.
func CreateColorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "colors [token...]",
		Short:   "List named colors or resolve color tokens",
		Example: "  rgbnode colors\n  rgbnode colors orange '#00ff00' chartreuse",
		RunE: func(c *cobra.Command, args []string) error {
			if len(args) == 0 {
				return listColors(c.OutOrStdout())
			}
			return resolveColors(c.OutOrStdout(), args)
		},
	}
}

func listColors(w io.Writer) error {
	for _, name := range color.Names() {
		c, _ := color.Lookup(name)
		if _, err := fmt.Fprintf(w, "%-8s %s\n", name, c.Hex()); err != nil {
			return err
		}
	}
	return nil
}

func resolveColors(w io.Writer, tokens []string) error {
	for _, token := range tokens {
		c, ok := color.Resolve(token)
		note := ""
		if !ok {
			note = " (unresolved, off)"
		}
		if _, err := fmt.Fprintf(w, "%-12q %s%s\n", token, c.Hex(), note); err != nil {
			return err
		}
	}
	return nil
}

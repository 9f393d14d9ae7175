package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/antoniostano/reelstudio/internal/auth"
	"github.com/antoniostano/reelstudio/internal/catalog"
)

// runToken only needs AUTH_SECRET, so it skips the full config validation.
func runToken(cmd *cobra.Command, _ []string) error {
	secret := strings.TrimSpace(os.Getenv("AUTH_SECRET"))
	if secret == "" {
		return fmt.Errorf("AUTH_SECRET is required")
	}
	token, err := auth.NewSigner(secret, flagTokenTTL).Issue(flagUserID)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func runCatalog(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	if flagJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"niches": catalog.Niches(),
			"voices": catalog.Voices(),
		})
	}

	fmt.Fprintln(out, "Niches:")
	for _, n := range catalog.Niches() {
		fmt.Fprintf(out, "  %s\n", n)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Voices:")
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tNAME\tDESCRIPTION")
	for _, v := range catalog.Voices() {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", v.ID, v.Name, v.Description)
	}
	return w.Flush()
}

package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var identitiesCmd = &cobra.Command{
	Use:   "identities",
	Short: "Inspect registered identities",
}

var identitiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered identities",
	Args:  cobra.NoArgs,
	RunE:  runIdentitiesList,
}

func init() {
	rootCmd.AddCommand(identitiesCmd)
	identitiesCmd.AddCommand(identitiesListCmd)
}

func runIdentitiesList(cmd *cobra.Command, _ []string) error {
	_, stores, err := openStores(cmd.Context())
	if err != nil {
		return err
	}
	defer stores.Close()

	idents, err := stores.Identities.List(cmd.Context())
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPHOTO\tUPDATED")
	for _, ident := range idents {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ident.ID, ident.Name, ident.PhotoKey, ident.UpdatedAt.Format("2006-01-02 15:04"))
	}
	w.Flush()
	fmt.Fprintf(cmd.OutOrStdout(), "\nTotal: %d\n", len(idents))
	return nil
}

package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"classattend/internal/timetable"
)

var timetableCmd = &cobra.Command{
	Use:   "timetable",
	Short: "Inspect and replace the weekly timetable",
}

var timetableImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the stored timetable with a YAML document",
	Long: `Replace the stored timetable with the subjects in a YAML document.
The file is validated first; on any error the stored timetable is unchanged.

Example:
  attendctl timetable import timetable.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runTimetableImport,
}

var timetableShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored timetable",
	Args:  cobra.NoArgs,
	RunE:  runTimetableShow,
}

var timetableValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a YAML timetable for bad slots and overlaps",
	Args:  cobra.ExactArgs(1),
	RunE:  runTimetableValidate,
}

func init() {
	rootCmd.AddCommand(timetableCmd)
	timetableCmd.AddCommand(timetableImportCmd, timetableShowCmd, timetableValidateCmd)
}

func runTimetableImport(cmd *cobra.Command, args []string) error {
	slots, err := timetable.ReadFile(args[0])
	if err != nil {
		return err
	}
	cfg, stores, err := openStores(cmd.Context())
	if err != nil {
		return err
	}
	defer stores.Close()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	index := timetable.NewIndex(stores.Timetable, loc)
	if err := index.Replace(cmd.Context(), slots); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d slots\n", len(slots))
	return nil
}

func runTimetableShow(cmd *cobra.Command, _ []string) error {
	_, stores, err := openStores(cmd.Context())
	if err != nil {
		return err
	}
	defer stores.Close()

	slots, err := stores.Timetable.Load(cmd.Context())
	if err != nil {
		return err
	}
	if len(slots) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No timetable stored")
		return nil
	}
	printSlots(cmd, slots)
	return nil
}

func runTimetableValidate(cmd *cobra.Command, args []string) error {
	slots, err := timetable.ReadFile(args[0])
	if err != nil {
		return err
	}
	printSlots(cmd, slots)
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d slots OK\n", len(slots))
	return nil
}

func printSlots(cmd *cobra.Command, slots []timetable.Slot) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tNAME\tDAY\tSTART\tEND")
	for _, s := range slots {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.SubjectCode, s.SubjectName, s.Day, s.Start, s.End)
	}
	w.Flush()
}

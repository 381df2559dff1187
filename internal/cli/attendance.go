package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"classattend/internal/attendance"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Work with recorded attendance",
}

var attendanceExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export one day's attendance as CSV",
	Long: `Export one day's attendance as CSV (USN,Subject,Time) in the order it
was recorded.

Example:
  attendctl attendance export --date 2024-01-01 --out monday.csv`,
	Args: cobra.NoArgs,
	RunE: runAttendanceExport,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)
	attendanceCmd.AddCommand(attendanceExportCmd)

	attendanceExportCmd.Flags().String("date", "", "Day to export (YYYY-MM-DD)")
	attendanceExportCmd.Flags().String("out", "", "Write to this file instead of stdout")
	_ = attendanceExportCmd.MarkFlagRequired("date")
}

func runAttendanceExport(cmd *cobra.Command, _ []string) error {
	date, err := attendance.ParseDate(mustGetString(cmd, "date"))
	if err != nil {
		return err
	}
	out := mustGetString(cmd, "out")

	cfg, stores, err := openStores(cmd.Context())
	if err != nil {
		return err
	}
	defer stores.Close()
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	events, err := stores.Ledger.QueryByDate(cmd.Context(), date)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", out, err)
		}
		defer f.Close()
		w = f
	}
	if err := attendance.WriteCSV(w, events, loc); err != nil {
		return err
	}
	if out != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s\n", len(events), out)
	}
	return nil
}

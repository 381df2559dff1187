package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"classattend/internal/timetable"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "timetable.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTimetableValidate(t *testing.T) {
	path := writeFile(t, `subjects:
  - code: CS101
    name: Algorithms
    day: Monday
    startTime: "09:00"
    endTime: "10:00"
  - code: CS102
    name: Networks
    day: Monday
    startTime: "10:00"
    endTime: "11:00"
`)
	out, err := execute(t, "timetable", "validate", path)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "CS101") || !strings.Contains(out, "2 slots OK") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestTimetableValidateOverlap(t *testing.T) {
	path := writeFile(t, `subjects:
  - code: CS101
    name: Algorithms
    day: Monday
    startTime: "09:00"
    endTime: "10:00"
  - code: CS102
    name: Networks
    day: Monday
    startTime: "09:30"
    endTime: "10:30"
`)
	_, err := execute(t, "timetable", "validate", path)
	if !errors.Is(err, timetable.ErrOverlapConflict) {
		t.Fatalf("want overlap conflict, got %v", err)
	}
}

func TestCommandsNeedPostgres(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "memory")
	for _, args := range [][]string{
		{"timetable", "show"},
		{"identities", "list"},
		{"migrate"},
		{"attendance", "export", "--date", "2024-01-01"},
	} {
		if _, err := execute(t, args...); !errors.Is(err, errNeedsPostgres) {
			t.Errorf("%v: want errNeedsPostgres, got %v", args, err)
		}
	}
}

func TestExportRejectsBadDate(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "memory")
	if _, err := execute(t, "attendance", "export", "--date", "01/02/2024"); err == nil {
		t.Fatal("expected date error")
	}
}

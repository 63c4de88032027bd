package doctor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/klytics/fuelkit/internal/config"
	"github.com/klytics/fuelkit/internal/formats/xlsx"
	"github.com/klytics/fuelkit/internal/mqtt"
	"github.com/klytics/fuelkit/internal/reading"
)

func stubProber(t *testing.T, err error) {
	t.Helper()
	orig := prober
	prober = func(context.Context, mqtt.Options) error { return err }
	t.Cleanup(func() { prober = orig })
}

func fullYear(t *testing.T) string {
	t.Helper()
	rows := make([][]string, 12)
	for i := range rows {
		rows[i] = []string{"m", "", "", "", "", "50"}
	}
	path := filepath.Join(t.TempDir(), "Gasolina.xlsx")
	if err := xlsx.WriteFile(&xlsx.Workbook{Sheets: []xlsx.Sheet{{Name: "Sheet1", Rows: rows}}}, path); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(path string) *config.Config {
	return &config.Config{
		FilePath:       path,
		Column:         reading.DefaultColumn,
		BrokerAddress:  "localhost",
		BrokerPort:     mqtt.DefaultPort,
		ConnectTimeout: time.Second,
	}
}

func statusOf(checks []Check, name string) string {
	for _, c := range checks {
		if c.Name == name {
			return c.Status
		}
	}
	return ""
}

func TestRunChecksHealthy(t *testing.T) {
	stubProber(t, nil)
	checks := runChecks(context.Background(), testConfig(fullYear(t)))

	for _, name := range []string{"Go Runtime", "Spreadsheet", "Current Month", "Broker"} {
		if got := statusOf(checks, name); got != "ok" {
			t.Errorf("%s: status %q, want ok", name, got)
		}
	}
}

func TestRunChecksMissingSpreadsheet(t *testing.T) {
	stubProber(t, nil)
	checks := runChecks(context.Background(), testConfig(filepath.Join(t.TempDir(), "missing.xlsx")))

	if got := statusOf(checks, "Spreadsheet"); got != "error" {
		t.Errorf("Spreadsheet status = %q, want error", got)
	}
	if got := statusOf(checks, "Current Month"); got != "" {
		t.Error("month check should be skipped without a spreadsheet")
	}
}

func TestRunChecksBrokerDown(t *testing.T) {
	stubProber(t, errors.New("connection refused"))
	checks := runChecks(context.Background(), testConfig(fullYear(t)))

	if got := statusOf(checks, "Broker"); got != "error" {
		t.Errorf("Broker status = %q, want error", got)
	}
}

func TestRunChecksBadBroker(t *testing.T) {
	stubProber(t, nil)
	cfg := testConfig(fullYear(t))
	cfg.BrokerAddress = "ftp://example.com"

	if got := statusOf(runChecks(context.Background(), cfg), "Broker"); got != "error" {
		t.Errorf("Broker status = %q, want error", got)
	}
}

package cli

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"testing"

	"waste-process-api/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return execute(t, append([]string{"--env-file", ""}, args...)...)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func writeDataset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "food_waste.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"Country,Year,Food Category,Total Waste (Tons),Economic Loss (Million $),Avg Waste per Capita (Kg),Population (Million),Household Waste (%)\n"+
			"Colombia,2019,Dairy,23210.55,22410.09,109.8,50.3,48.1\n"+
			"Peru,2019,Dairy,17650.21,16988.04,98.4,33.0,49.0\n"), 0o644))
	return path
}

func TestMetricsCommand(t *testing.T) {
	out, err := run(t, "metrics", "--category", "Dairy", "--purchased", "100", "--wasted", "40", "--value", "1000", "--sales", "30")
	require.NoError(t, err)

	var m models.DerivedMetrics
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.InDelta(t, 40.0, m.WastePercentage, 1e-9)
	assert.InDelta(t, 400.0, m.EconomicLoss, 1e-9)
	assert.InDelta(t, 10.0, m.LossPerTon, 1e-9)
	require.NotNil(t, m.SalesToWasteRatio)
	assert.InDelta(t, 0.75, *m.SalesToWasteRatio, 1e-9)
}

func TestMetricsCommandWithoutSales(t *testing.T) {
	out, err := run(t, "metrics", "--category", "Dairy", "--purchased", "100", "--wasted", "40", "--value", "1000")
	require.NoError(t, err)
	assert.Contains(t, out, `"sales_to_waste_ratio": null`)
}

func TestMetricsCommandRejectsZeroWaste(t *testing.T) {
	_, err := run(t, "metrics", "--category", "Dairy", "--purchased", "100", "--wasted", "0", "--value", "1000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_INPUT")
}

func TestMetricsCommandRequiresFlags(t *testing.T) {
	_, err := run(t, "metrics", "--category", "Dairy")
	assert.Error(t, err)
}

func TestHistoryCommand(t *testing.T) {
	out, err := run(t, "--dataset", writeDataset(t), "--country", "colombia", "history", "--category", "DAIRY")
	require.NoError(t, err)

	var points []models.HistoricalPoint
	require.NoError(t, json.Unmarshal([]byte(out), &points))
	require.Len(t, points, 1)
	assert.Equal(t, 2019, points[0].Year)
	assert.Equal(t, 23210.55, points[0].TotalWasteTons)
}

func TestAnalyzeDryRun(t *testing.T) {
	out, err := run(t, "--dataset", writeDataset(t), "analyze", "--dry-run",
		"--category", "Dairy", "--purchased", "100", "--wasted", "40", "--value", "1000", "--lead-time", "5")
	require.NoError(t, err)

	assert.Contains(t, out, "=== system ===")
	assert.Contains(t, out, "Analista Senior de Gestión de Desperdicios")
	assert.Contains(t, out, "- Lead time: 5 días")
	assert.Contains(t, out, `"total_waste_tons":23210.55`)
	assert.Contains(t, out, "Ratio ventas/desperdicio: no calculado")
}

func TestPingRequiresCredentials(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "")
	_, err := run(t, "ping")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestEnvFileWarning(t *testing.T) {
	metricsArgs := []string{"metrics", "--category", "Dairy", "--purchased", "100", "--wasted", "40", "--value", "1000"}

	logs := captureLog(t)
	_, err := execute(t, metricsArgs...)
	require.NoError(t, err)
	assert.NotContains(t, logs.String(), "could not load")

	missing := filepath.Join(t.TempDir(), "missing.env")
	_, err = execute(t, append([]string{"--env-file", missing}, metricsArgs...)...)
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "could not load "+missing)
}

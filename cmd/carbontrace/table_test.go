package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTable_HeaderKeepsCase(t *testing.T) {
	out := renderTable(
		[]column{textColumn("Country"), numericColumn("kg CO2/MWh")},
		[][]string{{"Japan", "1.00"}, {"India", "100.00"}},
	)

	assert.Contains(t, out, "Country")
	assert.Contains(t, out, "kg CO2/MWh")
	assert.NotContains(t, out, "KG CO2/MWH")
}

func TestRenderTable_NumericColumnsAlignRight(t *testing.T) {
	out := renderTable(
		[]column{textColumn("Country"), numericColumn("kg CO2/MWh")},
		[][]string{{"Japan", "1.00"}},
	)

	// The value column is as wide as its ten-character header.
	assert.Contains(t, out, "       1.00 │")
	assert.Contains(t, out, "│ Japan   │")
}

func TestRenderTable_ShortAndLongRows(t *testing.T) {
	out := renderTable(
		[]column{textColumn("Output"), textColumn("Path")},
		[][]string{{"Metrics"}, {"Audit summary", "summary.csv", "extra"}},
	)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, out, "Metrics")
	assert.Contains(t, out, "summary.csv")
	assert.NotContains(t, out, "extra")
}

func TestRenderTable_NoColumns(t *testing.T) {
	assert.Empty(t, renderTable(nil, [][]string{{"x"}}))
}

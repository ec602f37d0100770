package reportsvc_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/promotion"
	"github.com/trezcool/academia/services/report"
)

func TestWriteXLSX(t *testing.T) {
	rep := promotion.Report{
		SchoolID:         "sch",
		FromSessionID:    "s2023",
		ToSessionID:      "s2024",
		Promoted:         3,
		Graduated:        1,
		Skipped:          2,
		MissingDecisions: []string{"PAN002", "PAN007"},
		Failures: []promotion.Failure{
			{PromotionID: "p5", StudentPAN: "PAN005", Kind: core.KindInvalidState, Reason: "decision has no target class"},
		},
		StartedAt:   time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC),
		ProcessedAt: time.Date(2024, 7, 1, 8, 0, 3, 0, time.UTC),
	}

	var buf bytes.Buffer
	require.NoError(t, reportsvc.WriteXLSX(&buf, rep))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{reportsvc.SummarySheet, reportsvc.MissingSheet, reportsvc.FailuresSheet}, f.GetSheetList())

	promoted, err := f.GetCellValue(reportsvc.SummarySheet, "B6")
	require.NoError(t, err)
	assert.Equal(t, "3", promoted)

	missing, err := f.GetRows(reportsvc.MissingSheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Student PAN"}, {"PAN002"}, {"PAN007"}}, missing)

	failures, err := f.GetRows(reportsvc.FailuresSheet)
	require.NoError(t, err)
	require.Len(t, failures, 2)
	assert.Equal(t, []string{"p5", "PAN005", "invalid_state", "decision has no target class"}, failures[1])
}

func TestFileName(t *testing.T) {
	rep := promotion.Report{FromSessionID: "a", ToSessionID: "b", ProcessedAt: time.Date(2024, 7, 1, 8, 0, 3, 0, time.UTC)}
	assert.Equal(t, "promotion_a_b_20240701_080003.xlsx", reportsvc.FileName(rep))
}

package reportsvc

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/academia/core/promotion"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	SummarySheet  = "Summary"
	MissingSheet  = "Missing decisions"
	FailuresSheet = "Failures"
)

// FileName is the suggested download name of the report of an execution.
func FileName(r promotion.Report) string {
	return "promotion_" + r.FromSessionID + "_" + r.ToSessionID + "_" + r.ProcessedAt.Format("20060102_150405") + ".xlsx"
}

// WriteXLSX writes the execution report as a spreadsheet: counts, missing decisions and failures.
func WriteXLSX(w io.Writer, r promotion.Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return errors.Wrap(err, "naming summary sheet")
	}
	summary := [][]interface{}{
		{"School", r.SchoolID},
		{"From session", r.FromSessionID},
		{"To session", r.ToSessionID},
		{"Started at", r.StartedAt.Format(time.RFC3339)},
		{"Processed at", r.ProcessedAt.Format(time.RFC3339)},
		{"Promoted", r.Promoted},
		{"Graduated", r.Graduated},
		{"Detained", r.Detained},
		{"Skipped (already done)", r.Skipped},
		{"Missing decisions", len(r.MissingDecisions)},
		{"Failures", len(r.Failures)},
	}
	if err := writeRows(f, SummarySheet, summary); err != nil {
		return err
	}

	missing := [][]interface{}{{"Student PAN"}}
	for _, pan := range r.MissingDecisions {
		missing = append(missing, []interface{}{pan})
	}
	if err := newSheet(f, MissingSheet, missing); err != nil {
		return err
	}

	failures := [][]interface{}{{"Promotion", "Student PAN", "Kind", "Reason"}}
	for _, fl := range r.Failures {
		failures = append(failures, []interface{}{fl.PromotionID, fl.StudentPAN, string(fl.Kind), fl.Reason})
	}
	if err := newSheet(f, FailuresSheet, failures); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "writing report")
	}
	return nil
}

func newSheet(f *excelize.File, name string, rows [][]interface{}) error {
	if _, err := f.NewSheet(name); err != nil {
		return errors.Wrapf(err, "creating sheet %q", name)
	}
	return writeRows(f, name, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return errors.Wrap(err, "locating row")
		}
		row := row
		if err = f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrapf(err, "writing %s row %d", sheet, i+1)
		}
	}
	return nil
}

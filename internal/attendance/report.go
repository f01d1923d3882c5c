package attendance

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"smarttrack/internal/model"
	"smarttrack/internal/store"
)

// ReportHeader is the column order of period reports.
var ReportHeader = []string{"Date", "Student Name", "Admission #", "Check-in Time"}

// ReportRow is one check-in as it appears in a report.
type ReportRow struct {
	Date            string
	StudentName     string
	AdmissionNumber string
	CheckIn         string
}

func (r ReportRow) fields() []string {
	return []string{r.Date, r.StudentName, r.AdmissionNumber, r.CheckIn}
}

// Report is the check-in sheet of one period.
type Report struct {
	Period model.Period
	Rows   []ReportRow
}

// Reporter builds period reports.
type Reporter struct {
	store store.Store
	deps
}

// NewReporter creates a reporter; WithLocation sets the check-in time zone.
func NewReporter(st store.Store, opts ...Option) *Reporter {
	d := defaultDeps()
	for _, opt := range opts {
		opt(&d)
	}
	return &Reporter{store: st, deps: d}
}

// Build joins a period's records with the user collection. Students deleted
// since checking in keep their row with empty name and admission number.
func (r *Reporter) Build(ctx context.Context, periodID string) (Report, error) {
	period, err := store.FindPeriod(ctx, r.store, periodID)
	if err != nil {
		return Report{}, err
	}
	records, err := r.store.Attendance(ctx)
	if err != nil {
		return Report{}, err
	}
	users, err := r.store.Users(ctx)
	if err != nil {
		return Report{}, err
	}
	byID := make(map[string]model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	rep := Report{Period: period, Rows: []ReportRow{}}
	for _, rec := range records {
		if rec.PeriodID != period.ID {
			continue
		}
		student := byID[rec.StudentID]
		rep.Rows = append(rep.Rows, ReportRow{
			Date:            period.Date,
			StudentName:     student.FullName,
			AdmissionNumber: student.AdmissionNumber(),
			CheckIn:         time.UnixMilli(rec.Timestamp).In(r.loc).Format("15:04:05"),
		})
	}
	return rep, nil
}

// FileName is the suggested download name without extension.
func (rep Report) FileName() string {
	subject := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == '"' {
			return '_'
		}
		return r
	}, rep.Period.Subject)
	return "attendance_" + subject
}

// WriteCSV writes the report with every field double-quoted.
func (rep Report) WriteCSV(w io.Writer) error {
	lines := make([]string, 0, len(rep.Rows)+1)
	lines = append(lines, strings.Join(ReportHeader, ","))
	for _, row := range rep.Rows {
		quoted := make([]string, 0, 4)
		for _, f := range row.fields() {
			quoted = append(quoted, `"`+strings.ReplaceAll(f, `"`, `""`)+`"`)
		}
		lines = append(lines, strings.Join(quoted, ","))
	}
	for _, line := range lines {
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// WriteXLSX writes the report as a single-sheet workbook.
func (rep Report) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	header := make([]any, len(ReportHeader))
	for i, h := range ReportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rep.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{row.Date, row.StudentName, row.AdmissionNumber, row.CheckIn}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	return f.Write(w)
}

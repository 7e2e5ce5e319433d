// Package export renders assignment analytics as spreadsheets.
package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/language-gems/analytics-service/internal/aggregation"
	"github.com/language-gems/analytics-service/internal/models"
	"github.com/xuri/excelize/v2"
)

const (
	OverviewSheet = "Overview"
	WordsSheet    = "Words"
	StudentsSheet = "Students"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// AssignmentMeta labels the workbook.
type AssignmentMeta struct {
	AssignmentID string
	Title        string
	ClassName    string
	GeneratedAt  time.Time
}

// Filename returns a filesystem safe name for the workbook.
func (m AssignmentMeta) Filename() string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, m.Title)
	if name == "" {
		name = m.AssignmentID
	}
	return fmt.Sprintf("assignment-analytics-%s-%s.xlsx", name, m.GeneratedAt.Format("20060102"))
}

// AssignmentWorkbook writes the overview, word ranking and roster of one
// assignment into a three sheet xlsx file.
func AssignmentWorkbook(meta AssignmentMeta, result aggregation.AssignmentResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", OverviewSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{WordsSheet, StudentsSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to create Excel sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	w := &sheetWriter{f: f, header: header}
	w.overview(meta, result.Overview)
	w.words(result.Words)
	w.students(result.Students)
	if w.err != nil {
		return nil, w.err
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetWriter keeps the first error so the sheet builders stay linear.
type sheetWriter struct {
	f      *excelize.File
	header int
	err    error
}

func (w *sheetWriter) row(sheet string, n int, values ...interface{}) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
		w.err = fmt.Errorf("failed to write %s row %d: %w", sheet, n, err)
	}
}

func (w *sheetWriter) headerRow(sheet string, titles ...interface{}) {
	w.row(sheet, 1, titles...)
	if w.err != nil {
		return
	}
	last, err := excelize.CoordinatesToCellName(len(titles), 1)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetCellStyle(sheet, "A1", last, w.header); err != nil {
		w.err = err
	}
}

func (w *sheetWriter) overview(meta AssignmentMeta, o aggregation.Overview) {
	w.headerRow(OverviewSheet, "Metric", "Value")
	rows := [][]interface{}{
		{"Assignment", meta.Title},
		{"Class", meta.ClassName},
		{"Generated at", meta.GeneratedAt.UTC().Format(time.RFC3339)},
		{"Total students", o.TotalStudents},
		{"Students with a session", o.StudentsWithSession},
		{"Completed", o.StudentsCompleted},
		{"In progress", o.StudentsInProgress},
		{"Abandoned", o.StudentsAbandoned},
		{"Not started", o.StudentsNotStarted},
		{"Completion rate (%)", roundPercent(o.CompletionRate)},
		{"Average accuracy (%)", optional(o.AverageAccuracy)},
		{"Average time (min)", optionalMinutes(o.AverageTimeSeconds)},
		{"Class success score (%)", optional(o.ClassSuccessScore)},
		{"Students needing help", o.StudentsNeedingHelp},
	}
	for i, r := range rows {
		w.row(OverviewSheet, i+2, r...)
	}
}

func (w *sheetWriter) words(words []aggregation.WordDifficulty) {
	w.headerRow(WordsSheet, "Rank", "Word", "Translation", "Attempts", "Correct", "Accuracy (%)", "Students", "Insight")
	for i, word := range words {
		w.row(WordsSheet, i+2,
			word.Rank, word.Word, word.Translation, word.TotalAttempts, word.CorrectAttempts,
			roundPercent(word.Accuracy), word.StudentsAttempted, string(word.InsightLevel))
	}
}

func (w *sheetWriter) students(roster []aggregation.StudentProgress) {
	w.headerRow(StudentsSheet, "Student", "Status", "Sessions", "Best accuracy (%)", "Best score", "Time (min)", "Failure rate (%)", "Struggle words", "Flag")
	for i, sp := range roster {
		struggles := make([]string, 0, len(sp.KeyStruggleWords))
		for _, kw := range sp.KeyStruggleWords {
			struggles = append(struggles, kw.Word)
		}
		w.row(StudentsSheet, i+2,
			sp.Name, statusLabel(sp.Status), sp.SessionsCount, optional(sp.BestAccuracy), optionalRaw(sp.BestScore),
			roundPercent(float64(sp.TimeSpentSeconds)/60), roundPercent(sp.FailureRate),
			strings.Join(struggles, ", "), string(sp.InterventionFlag))
	}
}

func statusLabel(s models.CompletionStatus) string {
	switch s {
	case models.StatusCompleted:
		return "Completed"
	case models.StatusInProgress:
		return "In progress"
	case models.StatusAbandoned:
		return "Abandoned"
	default:
		return "Not started"
	}
}

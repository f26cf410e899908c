package export

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"kintai/internal/model"
)

const (
	SchedulesSheet = "Schedules"
	TotalsSheet    = "Totals"

	// ContentType is the MIME type of the generated workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	scheduleHeader = []string{"ID", "User", "Created by", "Start", "End", "Hours", "State"}
	totalsHeader   = []string{"User", "Permitted hours"}
)

// UserTotal is the permitted working time of one user.
type UserTotal struct {
	Username string
	Hours    decimal.Decimal
}

// Hours returns the length of s in hours rounded to two places.
func Hours(s model.Schedule) decimal.Decimal {
	return decimal.NewFromInt(int64(s.EndTime.Sub(s.StartTime))).
		Div(decimal.NewFromInt(int64(time.Hour))).
		Round(2)
}

// PermittedTotals sums hours of approved, attended, still enabled schedules
// per user, sorted by username.
func PermittedTotals(schedules []model.Schedule) []UserTotal {
	sums := map[string]decimal.Decimal{}
	for _, s := range schedules {
		if !s.Permitted || s.Absent || !s.Enable {
			continue
		}
		sums[s.Username] = sums[s.Username].Add(Hours(s))
	}
	out := make([]UserTotal, 0, len(sums))
	for u, h := range sums {
		out = append(out, UserTotal{Username: u, Hours: h})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// Attendance builds a workbook with one row per schedule and a per-user
// totals sheet. Times are rendered in loc.
func Attendance(schedules []model.Schedule, loc *time.Location) (*excelize.File, error) {
	if loc == nil {
		loc = time.UTC
	}
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SchedulesSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(TotalsSheet); err != nil {
		return nil, fmt.Errorf("new sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("new style: %w", err)
	}

	if err := writeHeader(f, SchedulesSheet, scheduleHeader, bold); err != nil {
		return nil, err
	}
	for i, s := range schedules {
		row := i + 2
		values := []interface{}{
			s.ID,
			s.Username,
			s.CreatedBy,
			s.StartTime.In(loc).Format(time.RFC3339),
			s.EndTime.In(loc).Format(time.RFC3339),
			Hours(s).InexactFloat64(),
			s.StateName(),
		}
		if err := writeRow(f, SchedulesSheet, row, values); err != nil {
			return nil, err
		}
	}

	if err := writeHeader(f, TotalsSheet, totalsHeader, bold); err != nil {
		return nil, err
	}
	for i, t := range PermittedTotals(schedules) {
		if err := writeRow(f, TotalsSheet, i+2, []interface{}{t.Username, t.Hours.InexactFloat64()}); err != nil {
			return nil, err
		}
	}

	widths := []struct {
		sheet, from, to string
		width           float64
	}{
		{SchedulesSheet, "B", "C", 16},
		{SchedulesSheet, "D", "E", 26},
		{TotalsSheet, "A", "B", 18},
	}
	for _, w := range widths {
		if err := f.SetColWidth(w.sheet, w.from, w.to, w.width); err != nil {
			return nil, fmt.Errorf("set width %s!%s:%s: %w", w.sheet, w.from, w.to, err)
		}
	}
	return f, nil
}

// WriteAttendance streams the workbook built by Attendance to w.
func WriteAttendance(w io.Writer, schedules []model.Schedule, loc *time.Location) error {
	f, err := Attendance(schedules, loc)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Filename names an export covering [start, end).
func Filename(start, end time.Time) string {
	return "attendance_" + start.Format("20060102") + "-" + end.Format("20060102") + ".xlsx"
}

func writeHeader(f *excelize.File, sheet string, header []string, style int) error {
	values := make([]interface{}, len(header))
	for i, h := range header {
		values[i] = h
	}
	if err := writeRow(f, sheet, 1, values); err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", end, style); err != nil {
		return fmt.Errorf("style header %s: %w", sheet, err)
	}
	if err := f.AutoFilter(sheet, "A1:"+end, nil); err != nil {
		return fmt.Errorf("filter header %s: %w", sheet, err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("set row %s!%d: %w", sheet, row, err)
	}
	return nil
}

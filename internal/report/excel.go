// Package report renders booking exports as Excel workbooks.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"tablebook/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	bookingsSheet = "Bookings"
	slotsSheet    = "Timeslots"
)

var bookingColumns = []string{
	"ID", "Restaurant", "Date", "Time", "Party", "Status", "Guest", "Phone", "Email",
	"Table", "Code", "Requests", "Created At",
}

var statusColors = map[models.BookingStatus]string{
	models.StatusPending:   "#FFF2CC",
	models.StatusConfirmed: "#DDEBF7",
	models.StatusSeated:    "#E2EFDA",
	models.StatusCompleted: "#C6EFCE",
	models.StatusCancelled: "#F8CBAD",
	models.StatusNoShow:    "#D9D9D9",
}

// Export is a rendered workbook. Callers must Close it.
type Export struct {
	file *excelize.File
}

// BuildBookingsExport renders a booking list sheet plus a per-slot guest grid
// for the active bookings.
func BuildBookingsExport(title string, bookings []*models.Booking) (*Export, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(bookingsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	if err := writeBookingList(f, title, bookings); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(slotsSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	if err := writeSlotGrid(f, bookings); err != nil {
		f.Close()
		return nil, err
	}

	// Удаляем стандартный лист
	_ = f.DeleteSheet("Sheet1")
	return &Export{file: f}, nil
}

func (e *Export) Write(w io.Writer) error {
	return e.file.Write(w)
}

// SaveTo writes the workbook into dir and returns the file path.
func (e *Export) SaveTo(dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := e.file.SaveAs(path); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	return path, nil
}

func (e *Export) Close() error {
	return e.file.Close()
}

// FileName builds the export file name for a restaurant and date filter.
func FileName(restaurantID, date string, now time.Time) string {
	name := "bookings"
	if restaurantID != "" {
		name += "_" + restaurantID
	}
	if date != "" {
		name += "_" + date
	}
	return fmt.Sprintf("%s_%s.xlsx", name, now.Format("20060102_150405"))
}

func writeBookingList(f *excelize.File, title string, bookings []*models.Booking) error {
	_ = f.SetCellValue(bookingsSheet, "A1", title)
	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	if err == nil {
		_ = f.SetCellStyle(bookingsSheet, "A1", "A1", titleStyle)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("error creating style: %w", err)
	}
	for i, h := range bookingColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(bookingsSheet, cell, h)
		_ = f.SetCellStyle(bookingsSheet, cell, cell, headerStyle)
	}

	styles := make(map[models.BookingStatus]int, len(statusColors))
	for status, color := range statusColors {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			return fmt.Errorf("error creating style: %w", err)
		}
		styles[status] = id
	}

	for i, b := range bookings {
		row := i + 3
		values := []interface{}{
			b.ID, b.RestaurantName, b.Date, b.Time, b.PartySize, string(b.Status),
			b.UserName, b.UserPhone, b.UserEmail, b.TableNumber, b.ConfirmationCode,
			b.SpecialRequests, b.CreatedAt.UTC().Format("2006-01-02 15:04"),
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(bookingsSheet, start, &values); err != nil {
			return fmt.Errorf("error writing row %d: %w", row, err)
		}
		statusCell, _ := excelize.CoordinatesToCellName(6, row)
		if style, ok := styles[b.Status]; ok {
			_ = f.SetCellStyle(bookingsSheet, statusCell, statusCell, style)
		}
	}

	_ = f.SetColWidth(bookingsSheet, "A", "A", 38)
	_ = f.SetColWidth(bookingsSheet, "B", "M", 16)
	return nil
}

// writeSlotGrid renders dates as columns and times as rows, each cell holding
// the guests of active bookings at that slot.
func writeSlotGrid(f *excelize.File, bookings []*models.Booking) error {
	guests := make(map[string]map[string]int)
	dateSet := make(map[string]struct{})
	timeSet := make(map[string]struct{})
	for _, b := range bookings {
		if !b.Status.IsActive() && b.Status != models.StatusCompleted {
			continue
		}
		if guests[b.Date] == nil {
			guests[b.Date] = make(map[string]int)
		}
		guests[b.Date][b.Time] += b.PartySize
		dateSet[b.Date] = struct{}{}
		timeSet[b.Time] = struct{}{}
	}
	dates := sortedKeys(dateSet)
	times := sortedKeys(timeSet)

	_ = f.SetCellValue(slotsSheet, "A1", "Time")
	for i, d := range dates {
		cell, _ := excelize.CoordinatesToCellName(i+2, 1)
		_ = f.SetCellValue(slotsSheet, cell, d)
	}
	for r, t := range times {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		_ = f.SetCellValue(slotsSheet, cell, t)
		for c, d := range dates {
			if n := guests[d][t]; n > 0 {
				cell, _ := excelize.CoordinatesToCellName(c+2, r+2)
				_ = f.SetCellValue(slotsSheet, cell, n)
			}
		}
	}
	return nil
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

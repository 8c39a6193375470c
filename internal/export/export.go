package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"skhpc/internal/ledger"
	"skhpc/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Bookings"

var columns = []struct {
	header string
	width  float64
}{
	{"Booking ID", 12},
	{"Booking Hash", 36},
	{"User Name", 20},
	{"User Email", 25},
	{"GPU Model", 12},
	{"GPU ID", 15},
	{"Start Time", 22},
	{"End Time", 22},
	{"Status", 12},
	{"Total Cost", 12},
	{"Overtime Cost", 14},
	{"Created At", 22},
}

// Exporter writes ledger snapshots as Excel files for the operations team.
type Exporter struct {
	ledger *ledger.Ledger
	path   string
	logger *zerolog.Logger
}

func NewExporter(led *ledger.Ledger, path string, logger *zerolog.Logger) *Exporter {
	return &Exporter{ledger: led, path: path, logger: logger}
}

// ExportBookings writes every ledger entry to a new xlsx file and returns
// its path.
func (e *Exporter) ExportBookings() (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, col.header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)

		name, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheetName, name, name, col.width)
	}

	bookings := e.ledger.All()
	for i := range bookings {
		e.writeRow(f, i+2, &bookings[i])
	}

	cancelledStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFC7CE"}, Pattern: 1},
	})
	for i := range bookings {
		if bookings[i].Status == models.StatusCancelled {
			start, _ := excelize.CoordinatesToCellName(1, i+2)
			end, _ := excelize.CoordinatesToCellName(len(columns), i+2)
			_ = f.SetCellStyle(sheetName, start, end, cancelledStyle)
		}
	}

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("bookings_export_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("bookings", len(bookings)).Msg("Excel file created")
	return filePath, nil
}

func (e *Exporter) writeRow(f *excelize.File, row int, b *models.Booking) {
	values := []interface{}{
		b.BookingID,
		b.BookingHash,
		b.UserName,
		b.UserEmail,
		b.GpuModel,
		b.GpuID,
		b.StartTime.UTC().Format(time.RFC3339),
		b.EndTime.UTC().Format(time.RFC3339),
		b.Status,
		b.TotalCost,
		b.OvertimeCost,
		b.CreatedAt.UTC().Format(time.RFC3339),
	}
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheetName, cell, v)
	}
}

package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"loadboard/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const loadsSheet = "Loads"

// Exporter writes load snapshots to xlsx workbooks under dir.
type Exporter struct {
	dir    string
	logger *zerolog.Logger
}

func NewExporter(dir string, logger *zerolog.Logger) *Exporter {
	return &Exporter{dir: dir, logger: logger}
}

// WriteLoadsWorkbook renders loads into a new workbook and returns its path.
func (e *Exporter) WriteLoadsWorkbook(loads []*models.Load) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(loadsSheet)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"ID", "Source", "Destination", "Material", "Weight (MT)", "Truck Type",
		"Load Type", "Scheduled", "Trucks", "Status", "Posted By", "Assigned To",
		"Booking Fee", "Accepted Quote", "Created",
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(loadsSheet, cell, header)
		_ = f.SetCellStyle(loadsSheet, cell, cell, headerStyle)
	}

	for i, load := range loads {
		row := i + 2
		e.writeLoadRow(f, row, load)
	}

	widths := []float64{8, 16, 16, 16, 12, 14, 10, 14, 8, 12, 12, 12, 14, 14, 18}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(loadsSheet, col, col, w)
	}

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("loads_export_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	filePath := filepath.Join(e.dir, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("loads", len(loads)).Msg("Loads workbook created")
	return filePath, nil
}

func (e *Exporter) writeLoadRow(f *excelize.File, row int, load *models.Load) {
	assigned := ""
	if load.AssignedTo != nil {
		assigned = fmt.Sprintf("%d", *load.AssignedTo)
	}
	accepted := ""
	if load.AcceptedQuoteAmount > 0 {
		accepted = formatAmount(load.AcceptedQuoteAmount)
	}

	values := []interface{}{
		load.ID,
		load.SourceCity,
		load.DestinationCity,
		load.Material,
		load.WeightMT,
		load.TruckType,
		load.LoadType,
		load.ScheduledDate.Format("02.01.2006"),
		load.TrucksRequired,
		load.Status,
		load.PostedBy,
		assigned,
		formatAmount(load.BookingFee),
		accepted,
		load.CreatedAt.Format("02.01.2006 15:04"),
	}
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(loadsSheet, cell, v)
	}

	if styleID, err := e.statusStyle(f, load.Status); err == nil {
		statusCell, _ := excelize.CoordinatesToCellName(10, row)
		_ = f.SetCellStyle(loadsSheet, statusCell, statusCell, styleID)
	}
}

// statusStyle colors the status cell: green for done, red for cancelled,
// yellow for anything in flight.
func (e *Exporter) statusStyle(f *excelize.File, status string) (int, error) {
	var color string
	switch status {
	case models.StatusCompleted:
		color = "#C6EFCE"
	case models.StatusCancelled:
		color = "#FFC7CE"
	case models.StatusOpen, models.StatusQuoted:
		color = "#FFFFFF"
	default:
		color = "#FFEB9C"
	}
	return f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
	})
}

func formatAmount(paise int64) string {
	return fmt.Sprintf("₹%.2f", float64(paise)/100)
}

package export

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/rubberworks/queuegate/internal/domain/models"
)

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var bookingHeaders = []string{
	"Booking code", "Date", "Start", "End", "Seq", "Supplier code", "Supplier",
	"Rubber type", "Truck register", "Truck type", "Check in", "Drain start", "Drain stop",
	"Weight in", "Weight out", "Net weight", "Stage", "Recorder",
}

var columnWidths = []float64{20, 12, 8, 8, 6, 14, 28, 14, 16, 14, 20, 20, 20, 12, 12, 12, 12, 16}

// Filename returns the download name for a day sheet.
func Filename(date string) string {
	return fmt.Sprintf("bookings-%s.xlsx", date)
}

// BookingsWorkbook renders one day of bookings as a single-sheet workbook.
func BookingsWorkbook(date string, bookings []models.BookingView) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := date
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("name sheet %s: %w", sheet, err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for i, h := range bookingHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for idx, b := range bookings {
		row := idx + 2
		values := []interface{}{
			b.BookingCode, b.Date, b.StartTime, b.EndTime, b.Sequence, b.SupplierCode, b.SupplierName,
			b.RubberType, b.TruckRegister, b.TruckType, b.CheckInTime, b.DrainStartTime, b.DrainStopTime,
			weightCell(b.TotalWeightIn()), weightCell(b.TotalWeightOut()), floatCell(b.NetWeight), string(b.Stage), b.Recorder,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("write cell %s: %w", cell, err)
			}
		}
	}

	for i, w := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}
	f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	return f, nil
}

func weightCell(v decimal.Decimal, ok bool) interface{} {
	if !ok {
		return ""
	}
	return v.InexactFloat64()
}

func floatCell(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

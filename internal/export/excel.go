// Package export renders reservations into an XLSX workbook for the owners'
// bookkeeping.
package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"villaalcielo/internal/models"

	"github.com/xuri/excelize/v2"
)

// Store is the storage slice the exporter reads from.
type Store interface {
	GetReservationsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Reservation, error)
	GetCabin(ctx context.Context, id int64) (*models.Cabin, error)
}

type Exporter struct {
	store Store
}

func NewExporter(store Store) *Exporter {
	return &Exporter{store: store}
}

var columns = []string{"Código", "Cabaña", "Huésped", "Email", "Entrada", "Salida", "Noches", "Personas", "Asado", "Total (COP)", "Estado"}

// WriteXLSX writes one sheet with every reservation overlapping the range,
// any status included, newest check-in last.
func (e *Exporter) WriteXLSX(ctx context.Context, w io.Writer, start, end time.Time) error {
	reservations, err := e.store.GetReservationsByDateRange(ctx, start, end)
	if err != nil {
		return fmt.Errorf("error getting reservations: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheetName = "Reservas"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Periodo: %s - %s",
		start.Format(models.DateLayout), end.Format(models.DateLayout)))
	lastCol, _ := excelize.ColumnNumberToName(len(columns))
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, col)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	cabinNames := map[int64]string{}
	for rowIdx, r := range reservations {
		name, ok := cabinNames[r.CabinID]
		if !ok {
			if cabin, err := e.store.GetCabin(ctx, r.CabinID); err == nil {
				name = cabin.Name
			}
			cabinNames[r.CabinID] = name
		}

		asado := "No"
		if r.IncludesAsado {
			asado = "Sí"
		}
		values := []interface{}{
			r.ConfirmationCode,
			name,
			r.GuestName,
			r.GuestEmail,
			r.CheckIn.Format(models.DateLayout),
			r.CheckOut.Format(models.DateLayout),
			r.Nights(),
			r.Guests,
			asado,
			r.TotalPrice,
			r.Status,
		}
		for colIdx, v := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+3)
			_ = f.SetCellValue(sheetName, cell, v)
		}
	}

	_ = f.SetColWidth(sheetName, "A", lastCol, 16)
	_ = f.DeleteSheet("Sheet1")

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

package booking

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	exportSheet    = "Bookings"
	exportPageSize = 200
	exportLayout   = "2006-01-02 15:04"
)

var exportColumns = []string{
	"ID", "Room", "Customer", "Email", "Phone", "Start", "End", "Players", "Price", "Status", "Notes", "Created",
}

// Export writes every booking matching filter to w as an XLSX workbook.
// Pagination fields of filter are ignored; rows are chronological unless
// filter sets an order.
func (s *service) Export(ctx context.Context, filter Filter, w io.Writer) error {
	var bookings []*Booking
	if filter.SortBy == "" {
		filter.SortBy, filter.SortOrder = "start_time", "ASC"
	}
	filter.PageSize = exportPageSize
	for page := 1; ; page++ {
		filter.Page = page
		batch, total, err := s.List(ctx, filter)
		if err != nil {
			return err
		}
		bookings = append(bookings, batch...)
		if len(batch) == 0 || len(bookings) >= total {
			break
		}
	}

	x, err := newSheetWriter(exportSheet)
	if err != nil {
		return err
	}
	defer x.Close()

	if err := x.writeHeader(exportColumns); err != nil {
		return err
	}
	loc := s.opts.Location
	for _, b := range bookings {
		row := []any{
			b.ID, b.RoomName, b.CustomerName, b.CustomerEmail, b.CustomerPhone,
			b.StartTime.In(loc).Format(exportLayout), b.EndTime.In(loc).Format(exportLayout),
			b.Players, b.Price, string(b.Status), b.Notes,
			b.CreatedAt.In(loc).Format(exportLayout),
		}
		if err := x.writeRow(row); err != nil {
			return err
		}
	}

	s.logger.Info().Int("rows", len(bookings)).Msg("bookings exported")
	return x.file.Write(w)
}

type sheetWriter struct {
	file  *excelize.File
	sheet string
	row   int
}

func newSheetWriter(sheet string) (*sheetWriter, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	return &sheetWriter{file: f, sheet: sheet, row: 1}, nil
}

func (w *sheetWriter) writeHeader(columns []string) error {
	values := make([]any, len(columns))
	for i, c := range columns {
		values[i] = c
	}
	if err := w.writeRow(values); err != nil {
		return err
	}

	style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	end, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return err
	}
	return w.file.SetCellStyle(w.sheet, "A1", end, style)
}

func (w *sheetWriter) writeRow(values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(w.sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", w.row, err)
	}
	w.row++
	return nil
}

func (w *sheetWriter) Close() error {
	return w.file.Close()
}

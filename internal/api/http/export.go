package http

import (
	"bytes"
	"fmt"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/xuri/excelize/v2"

	"roomrent-dashboard/internal/domain"
	"roomrent-dashboard/internal/logger"
	"roomrent-dashboard/internal/view"
)

const exportSheet = "Rooms"

var roomExportHeader = []string{
	"Room",
	"Type",
	"Price / Night",
	"Status",
	"Tenant",
	"Check In",
	"Check Out",
	"Time Left",
}

var roomExportWidths = []float64{15, 12, 14, 12, 25, 12, 12, 12}

// HandleExportRooms downloads the current room list as an Excel workbook.
func (h *Handler) HandleExportRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.rooms.ListRooms(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	data, err := GenerateRoomExport(rooms, h.today())
	if err != nil {
		logger.Error("Failed to generate room export", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate export")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=rooms.xlsx")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// GenerateRoomExport writes one row per room, with the same labels the
// dashboard cards show.
func GenerateRoomExport(rooms []domain.Room, today civil.Date) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetRow(exportSheet, "A1", &roomExportHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(roomExportHeader), 1)
	if err := f.SetCellStyle(exportSheet, "A1", lastHeader, headerStyle); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}
	for i, width := range roomExportWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(exportSheet, col, col, width); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, room := range rooms {
		card := view.NewRoomCard(room, today)
		row := []any{room.Name, string(room.Type), room.Price, card.StatusLabel, card.Tenant, card.CheckIn, card.CheckOut, card.TimeLeft}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

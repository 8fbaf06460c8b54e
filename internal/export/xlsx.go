// Package export выгружает встречи организатора в Excel.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/Spok95/meetapp/internal/domain/meetups"
	"github.com/xuri/excelize/v2"
)

var header = []interface{}{
	"meetup_id",
	"title",
	"location",
	"date",
	"subscribers",
	"status",
}

// OrganizerXLSX строит книгу с одной строкой на встречу.
// counts: число подписчиков по id встречи (может быть nil).
func OrganizerXLSX(list []meetups.Meetup, counts map[int64]int, now time.Time) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}

	for i, m := range list {
		status := "upcoming"
		if m.Past(now) {
			status = "past"
		}
		row := []interface{}{
			m.ID,
			m.Title,
			m.Location,
			m.Date.Format("2006-01-02 15:04"),
			counts[m.ID],
			status,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("cell: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	return buf, nil
}

func FileName(ownerID int64, now time.Time) string {
	return fmt.Sprintf("meetups_%d_%s.xlsx", ownerID, now.Format("20060102_150405"))
}

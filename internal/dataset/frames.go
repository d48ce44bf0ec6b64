package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// FrameRow is one kick's single-frame feature row.
type FrameRow struct {
	KickID    int64
	Values    []float64
	Direction int
}

// FrameTable is the single-frame dataset: one normalized reference frame per
// kick.
type FrameTable struct {
	Columns []string
	Rows    []FrameRow
}

// Header returns the CSV header: kick_id, the feature columns and
// kick_direction.
func (t *FrameTable) Header() []string {
	header := make([]string, 0, len(t.Columns)+2)
	header = append(header, "kick_id")
	header = append(header, t.Columns...)
	return append(header, "kick_direction")
}

// WriteCSV writes the table to w.
func (t *FrameTable) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(t.Columns)+2)
	for _, row := range t.Rows {
		if len(row.Values) != len(t.Columns) {
			return fmt.Errorf("kick %d has %d values, expected %d", row.KickID, len(row.Values), len(t.Columns))
		}
		record[0] = strconv.FormatInt(row.KickID, 10)
		for j, v := range row.Values {
			record[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		record[len(record)-1] = strconv.Itoa(row.Direction)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write kick %d: %w", row.KickID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

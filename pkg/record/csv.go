package record

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/itohio/peltiator/pkg/peltier"
)

// CommentPrefix starts every metadata line of an export.
const CommentPrefix = "#"

// Columns are the header of an export, in order.
var Columns = []string{
	"timestamp",
	"temperatureA_target",
	"temperatureB_target",
	"temperatureA_measured",
	"temperatureB_measured",
	"temperatureC_measured",
	"chanA_output",
	"chanB_output",
	"voltage",
}

// Meta is one metadata entry written ahead of the data.
type Meta struct {
	Key   string
	Value string
}

// DefaultMeta returns the metadata of a run started at start.
func DefaultMeta(sampleName string, start time.Time) []Meta {
	return []Meta{
		{Key: "sample_name", Value: sampleName},
		{Key: "start_timestamp", Value: formatTime(start)},
	}
}

// WriteCSV writes meta as "#,key,value" lines followed by the Columns header
// and one row per record. Timestamps are Unix seconds.
func WriteCSV(w io.Writer, meta []Meta, records []peltier.Status) error {
	cw := csv.NewWriter(w)

	for _, m := range meta {
		if err := cw.Write([]string{CommentPrefix, m.Key, m.Value}); err != nil {
			return fmt.Errorf("failed to write metadata: %w", err)
		}
	}
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]string, len(Columns))
	for _, r := range records {
		row[0] = formatTime(r.Timestamp)
		for i, v := range []float64{
			r.TargetA, r.TargetB,
			r.MeasuredA, r.MeasuredB, r.MeasuredC,
			r.OutputA, r.OutputB,
			r.Voltage,
		} {
			row[i+1] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixMicro())/1e6, 'f', 6, 64)
}

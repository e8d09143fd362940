package record

import (
	"bytes"
	"encoding/csv"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/itohio/peltiator/pkg/controller"
	"github.com/itohio/peltiator/pkg/peltier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	start := time.Unix(1700000000, 500000000)
	recs := []peltier.Status{
		{Timestamp: start, Status: controller.Status{
			TargetA: 27, TargetB: 23,
			MeasuredA: 26.5, MeasuredB: 23.25, MeasuredC: math.NaN(),
			OutputA: 0.4, OutputB: -0.1,
		}, Voltage: 0.0125},
		{Timestamp: start.Add(time.Second)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, DefaultMeta("sample 1", start), recs))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "#,sample_name,sample 1", lines[0])
	assert.Equal(t, "#,start_timestamp,1700000000.500000", lines[1])
	assert.Equal(t, strings.Join(Columns, ","), lines[2])
	assert.Equal(t, "1700000000.500000,27,23,26.5,23.25,NaN,0.4,-0.1,0.0125", lines[3])
	assert.Equal(t, "1700000001.500000,0,0,0,0,0,0,0,0", lines[4])

	// The data section reads back with the metadata treated as comments.
	rd := csv.NewReader(strings.NewReader(buf.String()))
	rd.Comment = '#'
	rows, err := rd.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])
}

func TestWriteCSV_QuotesMetadata(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []Meta{{Key: "note", Value: "a, b"}}, nil))
	assert.True(t, strings.HasPrefix(buf.String(), `#,note,"a, b"`+"\n"))
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteCSV_WriteError(t *testing.T) {
	err := WriteCSV(failWriter{}, nil, series(3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

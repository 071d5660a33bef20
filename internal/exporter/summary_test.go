package exporter

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

func TestWriteSummary(t *testing.T) {
	tests := []struct {
		name string
		rows []SummaryRow
		want []string
	}{
		{
			name: "both stages",
			rows: []SummaryRow{
				{Stage: "registry", Outcome: "ok", Read: 4, Filtered: 2, Kept: 2},
				{Stage: "prices", Outcome: "ok", Read: 6, Filtered: 3, Kept: 3},
			},
			want: []string{
				"| stage    | outcome | read | skipped | filtered | dropped | kept |",
				"| -------- | ------- | ---- | ------- | -------- | ------- | ---- |",
				"| registry | ok      |    4 |       0 |        2 |       0 |    2 |",
				"| prices   | ok      |    6 |       0 |        3 |       0 |    3 |",
			},
		},
		{
			name: "wide outcome",
			rows: []SummaryRow{
				{Stage: "registry", Outcome: "missing_schema", Read: 12345},
			},
			want: []string{
				"| stage    | outcome        |  read | skipped | filtered | dropped | kept |",
				"| -------- | -------------- | ----- | ------- | -------- | ------- | ---- |",
				"| registry | missing_schema | 12345 |       0 |        0 |       0 |    0 |",
			},
		},
		{
			name: "no rows",
			want: []string{
				"| stage | outcome | read | skipped | filtered | dropped | kept |",
				"| ----- | ------- | ---- | ------- | -------- | ------- | ---- |",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sb strings.Builder
			require.NoError(t, WriteSummary(&sb, tt.rows))
			assert.Equal(t, strings.Join(tt.want, "\n")+"\n", sb.String())
		})
	}
}

func TestWriteSummaryWriterError(t *testing.T) {
	err := WriteSummary(failingWriter{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed pipe")
}

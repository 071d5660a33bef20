package dataprocessing

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const (
	// sourceTimestampLayout is the dtComu format of the price export once
	// every field is zero padded
	sourceTimestampLayout = "02/01/2006 15:04:05"
	// TimestampLayout is the last_update format written to the price output
	TimestampLayout = "2006-01-02 15:04:05"
)

// dtComu fields may drop their leading zero
var sourceTimestampPattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4}) (\d{1,2}):(\d{1,2}):(\d{1,2})$`)

// NormalizeTimestamp rewrites a dd/mm/yyyy HH:MM:SS timestamp as
// yyyy-mm-dd HH:MM:SS. An empty input yields nil. Input in any other format
// is returned unchanged. Any unexpected failure yields nil.
func NormalizeTimestamp(s string) (out *string) {
	defer func() {
		if recover() != nil {
			out = nil
		}
	}()

	if s == "" {
		return nil
	}

	m := sourceTimestampPattern.FindStringSubmatch(s)
	if m == nil {
		return &s
	}

	var f [6]int
	for i := range f {
		f[i], _ = strconv.Atoi(m[i+1])
	}
	padded := fmt.Sprintf("%02d/%02d/%04d %02d:%02d:%02d", f[0], f[1], f[2], f[3], f[4], f[5])

	// time.Parse rejects out of range fields such as 31/02
	t, err := time.Parse(sourceTimestampLayout, padded)
	if err != nil {
		return &s
	}

	formatted := t.Format(TimestampLayout)
	return &formatted
}

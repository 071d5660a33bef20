package exporter

import (
	"strconv"
	"strings"
)

// formatFloat uses the shortest decimal that round-trips, so 45.07 stays
// 45.07 and 1.859 stays 1.859
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

// formatBool writes the 1/0 form the source files use
func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func formatOptionalInt(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}

func formatOptionalString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func parseInt(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

func parseOptionalInt(s string) (*int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

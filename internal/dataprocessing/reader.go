package dataprocessing

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// table is a parsed delimited file. Every row has exactly len(header) fields.
type table struct {
	columns map[string]int
	rows    [][]string
	lines   []int
	// skipped counts malformed lines (bad quoting or more fields than the header)
	skipped int
}

// missing returns the names that are not header columns
func (t *table) missing(names ...string) []string {
	var missing []string
	for _, name := range names {
		if _, ok := t.columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// get returns the named field of row i, empty when the column is absent
func (t *table) get(i int, name string) string {
	idx, ok := t.columns[name]
	if !ok {
		return ""
	}
	return t.rows[i][idx]
}

// readDelimited parses path skipping skipLines banner lines before the header.
// Malformed lines are counted and skipped. Short lines are padded with empty
// fields. A file that ends before its header yields a table with no columns.
func readDelimited(path string, comma rune, skipLines int) (*table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	br := bufio.NewReader(file)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	for i := 0; i < skipLines; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			if errors.Is(err, io.EOF) {
				return &table{columns: map[string]int{}}, nil
			}
			return nil, fmt.Errorf("failed to skip banner: %w", err)
		}
	}

	reader := csv.NewReader(br)
	reader.Comma = comma
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	t := &table{columns: map[string]int{}}

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, dup := t.columns[name]; !dup {
			t.columns[name] = i
		}
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			t.skipped++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}

		if len(record) > len(header) {
			t.skipped++
			continue
		}
		for len(record) < len(header) {
			record = append(record, "")
		}

		line, _ := reader.FieldPos(0)
		t.rows = append(t.rows, record)
		t.lines = append(t.lines, line+skipLines)
	}

	return t, nil
}

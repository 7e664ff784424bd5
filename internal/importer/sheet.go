package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for uploads that are neither xlsx nor csv.
var ErrUnsupportedFormat = errors.New("unsupported spreadsheet format, expected .xlsx or .csv")

var zipMagic = []byte("PK\x03\x04")

const (
	// maxExpansion bounds how much larger than the upload an unpacked
	// workbook may grow.
	maxExpansion  = 32
	minUnzipLimit = 8 << 20
	maxUnzipLimit = 512 << 20
)

// unzipLimit is the decompression budget for a workbook of size bytes.
func unzipLimit(size int) int64 {
	limit := int64(size) * maxExpansion
	if limit < minUnzipLimit {
		return minUnzipLimit
	}
	if limit > maxUnzipLimit {
		return maxUnzipLimit
	}
	return limit
}

// ReadSheet parses the first worksheet of an xlsx workbook, or a csv file, into
// rows keyed by the header row. Blank rows are skipped.
func ReadSheet(data []byte, filename string) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return readWorkbook(data, unzipLimit(len(data)))
	case ".csv":
		return readCSV(data)
	}
	if bytes.HasPrefix(data, zipMagic) {
		return readWorkbook(data, unzipLimit(len(data)))
	}
	if filename == "" && len(data) > 0 {
		return readCSV(data)
	}
	return nil, ErrUnsupportedFormat
}

func readWorkbook(data []byte, limit int64) ([]Row, error) {
	book, err := excelize.OpenReader(bytes.NewReader(data), excelize.Options{UnzipSizeLimit: limit})
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer book.Close() //nolint:errcheck

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	grid, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return toRows(grid), nil
}

func readCSV(data []byte) ([]Row, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var grid [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		grid = append(grid, record)
	}
	return toRows(grid), nil
}

func toRows(grid [][]string) []Row {
	if len(grid) == 0 {
		return nil
	}
	headers := grid[0]
	rows := make([]Row, 0, len(grid)-1)
	for _, cells := range grid[1:] {
		row := make(Row, len(headers))
		blank := true
		for i, header := range headers {
			if strings.TrimSpace(header) == "" {
				continue
			}
			value := ""
			if i < len(cells) {
				value = cells[i]
			}
			if strings.TrimSpace(value) != "" {
				blank = false
			}
			if _, exists := row[header]; !exists {
				row[header] = value
			}
		}
		if !blank {
			rows = append(rows, row)
		}
	}
	return rows
}

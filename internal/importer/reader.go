package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"catalog-import-service/internal/models"
)

// Source streams the data rows of an import file in file order. Next returns
// io.EOF once the file is exhausted.
type Source interface {
	Next() (models.RawRow, error)
	Close() error
}

// NewSource opens an import file and returns a row source chosen by file
// extension. The first row is consumed as the header; header names are
// lower-cased and trimmed so "SKU ", "Sku" and "sku" all map to the same
// column.
func NewSource(path string) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return newCSVSource(path)
	case ".xlsx":
		return newXLSXSource(path)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", filepath.Ext(path))
	}
}

// CountDataRows pre-scans the file and returns the number of data rows
// (header excluded). The import runs a full pre-scan so progress can report a
// real denominator instead of an estimate.
func CountDataRows(path string) (int, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return countCSVRows(path)
	case ".xlsx":
		return countXLSXRows(path)
	default:
		return 0, fmt.Errorf("unsupported file format: %s", filepath.Ext(path))
	}
}

// ReadBatch pulls up to n rows from the source. A short (or empty) batch with
// io.EOF means the file is done; any other error aborts the import.
func ReadBatch(src Source, n int) ([]models.RawRow, error) {
	batch := make([]models.RawRow, 0, n)
	for len(batch) < n {
		row, err := src.Next()
		if err == io.EOF {
			return batch, io.EOF
		}
		if err != nil {
			return batch, err
		}
		batch = append(batch, row)
	}
	return batch, nil
}

func normalizeHeader(cells []string) []string {
	headers := make([]string, len(cells))
	for i, cell := range cells {
		headers[i] = strings.ToLower(strings.TrimSpace(cell))
	}
	return headers
}

func rowFromRecord(headers, record []string) models.RawRow {
	row := make(models.RawRow, len(headers))
	for i, header := range headers {
		if header == "" {
			continue
		}
		if i < len(record) {
			row[header] = strings.TrimSpace(record[i])
		} else {
			row[header] = ""
		}
	}
	return row
}

type csvSource struct {
	file    *os.File
	reader  *csv.Reader
	headers []string
}

func newCSVSource(path string) (*csvSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		file.Close()
		if err == io.EOF {
			return nil, fmt.Errorf("import file is empty")
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	return &csvSource{file: file, reader: reader, headers: normalizeHeader(header)}, nil
}

func (s *csvSource) Next() (models.RawRow, error) {
	record, err := s.reader.Read()
	if err != nil {
		return nil, err
	}
	return rowFromRecord(s.headers, record), nil
}

func (s *csvSource) Close() error {
	return s.file.Close()
}

// countCSVRows counts CSV records with the same reader settings the streaming
// source uses, so quoted fields spanning lines cannot skew the total.
func countCSVRows(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open import file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records := 0
	for {
		if _, err := reader.Read(); err == io.EOF {
			break
		} else if err != nil {
			return 0, fmt.Errorf("failed to scan import file: %w", err)
		}
		records++
	}
	if records == 0 {
		return 0, nil
	}
	// First record is the header.
	return records - 1, nil
}

type xlsxSource struct {
	file    *excelize.File
	rows    *excelize.Rows
	headers []string
}

func newXLSXSource(path string) (*xlsxSource, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		file.Close()
		return nil, fmt.Errorf("Excel file has no sheets")
	}

	rows, err := file.Rows(sheets[0])
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}

	if !rows.Next() {
		rows.Close()
		file.Close()
		return nil, fmt.Errorf("import file is empty")
	}
	header, err := rows.Columns()
	if err != nil {
		rows.Close()
		file.Close()
		return nil, fmt.Errorf("failed to read Excel header: %w", err)
	}

	return &xlsxSource{file: file, rows: rows, headers: normalizeHeader(header)}, nil
}

func (s *xlsxSource) Next() (models.RawRow, error) {
	if !s.rows.Next() {
		if err := s.rows.Error(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	record, err := s.rows.Columns()
	if err != nil {
		return nil, err
	}
	return rowFromRecord(s.headers, record), nil
}

func (s *xlsxSource) Close() error {
	s.rows.Close()
	return s.file.Close()
}

func countXLSXRows(path string) (int, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return 0, fmt.Errorf("Excel file has no sheets")
	}

	rows, err := file.Rows(sheets[0])
	if err != nil {
		return 0, fmt.Errorf("failed to read Excel rows: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		count++
	}
	if err := rows.Error(); err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}
	return count - 1, nil
}

// Package sink writes finished tables to durable storage.
package sink

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrFileExists is returned when a table would overwrite an existing file
// and the caller did not ask for that explicitly.
var ErrFileExists = errors.New("output file already exists")

// Row is any table row that renders itself as CSV columns.
type Row interface {
	CSVRecord() []string
}

// WriteTable writes a table as a delimited file: the header once, then one
// record per row. An empty table still produces a file with the header, so
// downstream loaders always see the correct columns. Unless force is set,
// an existing file is refused rather than silently overwritten.
func WriteTable[R Row](path string, header []string, rows []R, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s (pass force to overwrite)", ErrFileExists, path)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write header to %s: %w", path, err)
	}
	for _, row := range rows {
		if err := writer.Write(row.CSVRecord()); err != nil {
			return fmt.Errorf("write row to %s: %w", path, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}

	return file.Close()
}

// ReadTable reads a delimited file written by WriteTable back into its
// header and records.
func ReadTable(path string) (header []string, records [][]string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err = reader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("%s is empty", path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", path, err)
		}
		records = append(records, record)
	}
	return header, records, nil
}

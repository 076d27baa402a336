package exporter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// CSVExporter writes a headerless CSV table to a file in the output directory.
type CSVExporter struct {
	log      *slog.Logger
	file     *os.File
	writer   *csv.Writer
	filename string
}

func NewCSVExporter(log *slog.Logger, outputDir, name string) (*CSVExporter, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	fullPath := filepath.Join(outputDir, name)
	file, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV file: %w", err)
	}
	log.Debug("Created CSV file", slog.String("file_path", fullPath))

	return &CSVExporter{
		log:      log,
		file:     file,
		writer:   csv.NewWriter(file),
		filename: fullPath,
	}, nil
}

func (e *CSVExporter) WriteRecords(records [][]string) error {
	for _, record := range records {
		if err := e.writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	e.writer.Flush()
	if err := e.writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV records: %w", err)
	}

	e.log.Debug("Wrote CSV records", slog.Int("records", len(records)), slog.String("file", e.filename))
	return nil
}

func (e *CSVExporter) Close() error {
	e.writer.Flush()
	return e.file.Close()
}

func (e *CSVExporter) GetFilename() string {
	return e.filename
}

// WriteFile writes records to outputDir/name and returns the full path.
func WriteFile(log *slog.Logger, outputDir, name string, records [][]string) (string, error) {
	e, err := NewCSVExporter(log, outputDir, name)
	if err != nil {
		return "", err
	}
	if err := e.WriteRecords(records); err != nil {
		e.Close()
		return "", err
	}
	if err := e.Close(); err != nil {
		return "", fmt.Errorf("failed to close CSV file: %w", err)
	}
	return e.GetFilename(), nil
}

// Render encodes records exactly as CSVExporter would write them.
func Render(records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("failed to render CSV: %w", err)
	}
	return buf.Bytes(), nil
}

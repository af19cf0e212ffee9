package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/scentsync/backend/internal/domain"
)

// CSVSource reads the quantity feed from a CSV document: a local file or an
// http(s) URL such as a published spreadsheet export. The first record is a
// header row; the configured column names locate the number and count
// fields. Rows stay raw text here; all parsing happens in the usecase layer.
type CSVSource struct {
	source       string
	numberColumn string
	countColumn  string
	httpClient   *http.Client
}

// NewCSVSource creates a feed source for the given path or URL.
func NewCSVSource(source, numberColumn, countColumn string) *CSVSource {
	return &CSVSource{
		source:       source,
		numberColumn: numberColumn,
		countColumn:  countColumn,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Rows reads the whole feed in source order.
func (s *CSVSource) Rows(ctx context.Context) ([]domain.FeedRow, error) {
	reader, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	cr := csv.NewReader(reader)
	cr.FieldsPerRecord = -1 // sheet exports pad rows unevenly

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read feed header: %w", err)
	}

	numberIdx, countIdx := s.locateColumns(header)

	var rows []domain.FeedRow
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read feed row: %w", err)
		}

		row := domain.FeedRow{}
		if numberIdx < len(record) {
			row.Number = record[numberIdx]
		}
		if countIdx < len(record) {
			row.Count = record[countIdx]
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// locateColumns finds the configured header names, case-insensitively.
// Missing columns fall back to the first two positions.
func (s *CSVSource) locateColumns(header []string) (numberIdx, countIdx int) {
	numberIdx, countIdx = 0, 1
	for i, name := range header {
		trimmed := strings.TrimSpace(name)
		if strings.EqualFold(trimmed, s.numberColumn) {
			numberIdx = i
		}
		if strings.EqualFold(trimmed, s.countColumn) {
			countIdx = i
		}
	}
	return numberIdx, countIdx
}

func (s *CSVSource) open(ctx context.Context) (io.ReadCloser, error) {
	if strings.HasPrefix(s.source, "http://") || strings.HasPrefix(s.source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.source, nil)
		if err != nil {
			return nil, fmt.Errorf("create feed request: %w", err)
		}
		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch feed: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetch feed: status %d", resp.StatusCode)
		}
		return resp.Body, nil
	}

	f, err := os.Open(s.source)
	if err != nil {
		return nil, fmt.Errorf("open feed file: %w", err)
	}
	return f, nil
}

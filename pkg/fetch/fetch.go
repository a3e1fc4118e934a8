// pkg/fetch/fetch.go
package fetch

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/geodir/ingress/pkg/model"
)

// Fetcher retrieves the raw row set of an import source. A URL source is
// fetched as JSON, a file source is parsed as CSV. Local paths are accepted
// for both so tests and offline runs can use fixture files.
type Fetcher struct {
	client *http.Client
	logger *zap.Logger
}

// NewFetcher creates a Fetcher with a default HTTP timeout.
func NewFetcher(logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: 60 * time.Second},
		logger: logger,
	}
}

// FetchRows retrieves the full record set for the import.
func (f *Fetcher) FetchRows(ctx context.Context, imp *model.Import) ([]map[string]any, error) {
	if imp.URL != "" {
		return f.FetchJSON(ctx, imp.URL)
	}
	if imp.FilePath != "" {
		return f.FetchCSV(ctx, imp.FilePath)
	}
	return nil, fmt.Errorf("import %q has neither url nor file path", imp.SourceName)
}

// FetchCSV reads a comma-separated file with a header row. Rows whose column
// count does not match the header are skipped.
func (f *Fetcher) FetchCSV(ctx context.Context, path string) ([]map[string]any, error) {
	body, err := f.open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("cannot open the CSV source: %w", err)
	}
	defer body.Close()

	reader := csv.NewReader(body)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("cannot read the CSV header: %w", err)
	}

	var rows []map[string]any
	skipped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cannot read CSV record: %w", err)
		}
		if len(record) != len(header) {
			skipped++
			continue
		}
		row := make(map[string]any, len(header))
		for i, field := range header {
			row[field] = record[i]
		}
		rows = append(rows, row)
	}

	if skipped > 0 {
		f.logger.Warn("Skipped ragged CSV rows",
			zap.String("path", path),
			zap.Int("skipped", skipped))
	}

	f.logger.Debug("Fetched CSV rows",
		zap.String("path", path),
		zap.Int("rows", len(rows)))
	return rows, nil
}

// FetchJSON retrieves and decodes a JSON source. The record list may be
// nested under a top-level "data" key, and each record may carry nested
// "geo" and "address" sub-objects, which are flattened into the flat fields
// the mapping stage works with.
func (f *Fetcher) FetchJSON(ctx context.Context, url string) ([]map[string]any, error) {
	body, err := f.open(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("cannot open the JSON source: %w", err)
	}
	defer body.Close()

	var decoded any
	if err := json.NewDecoder(body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("cannot decode the JSON source: %w", err)
	}

	if wrapper, ok := decoded.(map[string]any); ok {
		if data, ok := wrapper["data"]; ok {
			decoded = data
		}
	}

	list, ok := decoded.([]any)
	if !ok {
		return nil, fmt.Errorf("JSON source is not a record list")
	}

	rows := make([]map[string]any, 0, len(list))
	for _, item := range list {
		row, ok := item.(map[string]any)
		if !ok {
			continue
		}
		flattenGeo(row)
		flattenAddress(row)
		rows = append(rows, row)
	}

	f.logger.Debug("Fetched JSON rows",
		zap.String("url", url),
		zap.Int("rows", len(rows)))
	return rows, nil
}

// open returns a reader over an http(s) URL or a local file path.
func (f *Fetcher) open(ctx context.Context, location string) (io.ReadCloser, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
		if err != nil {
			return nil, err
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status %s", resp.Status)
		}
		return resp.Body, nil
	}
	return os.Open(location)
}

// flattenGeo lifts a nested geo object into flat latitude/longitude fields.
func flattenGeo(row map[string]any) {
	geo, ok := row["geo"].(map[string]any)
	if !ok {
		return
	}
	if lat, ok := geo["latitude"]; ok {
		row["latitude"] = lat
	}
	if lng, ok := geo["longitude"]; ok {
		row["longitude"] = lng
	}
	delete(row, "geo")
}

// flattenAddress lifts a nested address into the four flat address fields.
// A plain string address becomes the street address.
func flattenAddress(row map[string]any) {
	raw, ok := row["address"]
	if !ok {
		return
	}
	switch address := raw.(type) {
	case string:
		row["streetAddress"] = address
	case map[string]any:
		for _, field := range []string{"streetAddress", "addressLocality", "postalCode", "addressCountry"} {
			if v, ok := address[field]; ok {
				row[field] = v
			}
		}
	default:
		return
	}
	delete(row, "address")
}

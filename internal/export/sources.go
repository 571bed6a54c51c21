package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/octobees/exhibitor-leads/internal/pipeline"
)

// ReadSources reads batch sources from a CSV file (header with "url" and
// optional "fetch" and "discover" columns) or an NDJSON file whose lines are
// either bare URLs or {"url", "fetch", "discover"} objects. Files without a
// known extension are tried as CSV first.
func ReadSources(path string) ([]pipeline.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return DecodeCSVSources(f)
	case ".ndjson", ".jsonl":
		return DecodeNDJSONSources(f)
	default:
		if sources, err := DecodeCSVSources(f); err == nil && len(sources) > 0 {
			return sources, nil
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		return DecodeNDJSONSources(f)
	}
}

// DecodeCSVSources reads sources from CSV rows.
func DecodeCSVSources(r io.Reader) ([]pipeline.Source, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("empty csv")
	}

	urlCol, fetchCol, discoverCol := -1, -1, -1
	for i, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "url":
			urlCol = i
		case "fetch":
			fetchCol = i
		case "discover":
			discoverCol = i
		}
	}
	if urlCol == -1 {
		return nil, errors.New("csv must contain a 'url' header column")
	}

	var out []pipeline.Source
	for _, row := range rows[1:] {
		if urlCol >= len(row) {
			continue
		}
		src := pipeline.Source{URL: strings.TrimSpace(row[urlCol])}
		if src.URL == "" {
			continue
		}
		if fetchCol >= 0 && fetchCol < len(row) {
			src.Fetch = strings.ToLower(strings.TrimSpace(row[fetchCol]))
		}
		if discoverCol >= 0 && discoverCol < len(row) {
			src.Discover, _ = strconv.ParseBool(strings.TrimSpace(row[discoverCol]))
		}
		out = append(out, src)
	}
	return out, nil
}

// DecodeNDJSONSources reads one source per non-empty line.
func DecodeNDJSONSources(r io.Reader) ([]pipeline.Source, error) {
	var out []pipeline.Source
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "{") {
			var src pipeline.Source
			if err := json.Unmarshal([]byte(line), &src); err == nil && src.URL != "" {
				out = append(out, src)
				continue
			}
		}
		out = append(out, pipeline.Source{URL: line})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New("no sources found in ndjson")
	}
	return out, nil
}

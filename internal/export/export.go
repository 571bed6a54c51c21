// Package export renders the exhibitor and contact tables as CSV, NDJSON or
// JSON and reads batch source lists.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/octobees/exhibitor-leads/internal/entity"
)

const (
	FormatCSV    = "csv"
	FormatNDJSON = "ndjson"
	FormatJSON   = "json"
)

var ErrUnknownFormat = errors.New("unknown export format")

var (
	ExhibitorHeader = []string{"Name", "City", "Country", "Website", "Email"}
	ContactHeader   = []string{"Company Name", "Full Name", "Position", "Email", "Source"}
)

// ParseFormat normalizes a format name. Empty means JSON.
func ParseFormat(value string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(value)); f {
	case "":
		return FormatJSON, nil
	case FormatCSV, FormatNDJSON, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, value)
	}
}

// ContentType returns the media type served for a format.
func ContentType(format string) string {
	switch format {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatNDJSON:
		return "application/x-ndjson"
	default:
		return "application/json"
	}
}

// FileExtension returns the file suffix used for a format.
func FileExtension(format string) string {
	switch format {
	case FormatCSV:
		return ".csv"
	case FormatNDJSON:
		return ".ndjson"
	default:
		return ".json"
	}
}

// WriteExhibitors writes the exhibitor table. A CSV always carries its header,
// even with no rows.
func WriteExhibitors(w io.Writer, format string, rows []entity.Exhibitor) error {
	if rows == nil {
		rows = []entity.Exhibitor{}
	}
	switch format {
	case FormatCSV:
		records := make([][]string, 0, len(rows))
		for _, e := range rows {
			records = append(records, []string{
				e.Name,
				entity.StringValue(e.City),
				e.Country,
				entity.StringValue(e.Website),
				entity.StringValue(e.Email),
			})
		}
		return writeCSV(w, ExhibitorHeader, records)
	case FormatNDJSON:
		return WriteNDJSON(w, rows)
	case FormatJSON:
		return json.NewEncoder(w).Encode(rows)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteContacts writes the contact table.
func WriteContacts(w io.Writer, format string, rows []entity.Contact) error {
	if rows == nil {
		rows = []entity.Contact{}
	}
	switch format {
	case FormatCSV:
		records := make([][]string, 0, len(rows))
		for _, c := range rows {
			records = append(records, []string{
				c.CompanyName,
				c.FullName,
				c.Position,
				entity.StringValue(c.Email),
				c.Source,
			})
		}
		return writeCSV(w, ContactHeader, records)
	case FormatNDJSON:
		return WriteNDJSON(w, rows)
	case FormatJSON:
		return json.NewEncoder(w).Encode(rows)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteNDJSON writes one JSON document per line.
func WriteNDJSON[T any](w io.Writer, items []T) error {
	enc := json.NewEncoder(w)
	for _, it := range items {
		if err := enc.Encode(it); err != nil {
			return err
		}
	}
	return nil
}

func writeCSV(w io.Writer, header []string, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(records); err != nil {
		return err
	}
	return cw.Error()
}

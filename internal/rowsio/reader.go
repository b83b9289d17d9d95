// Package rowsio reads grid rows from CSV and JSON documents and infers the
// columns that describe them.
//
// Input is normalized before parsing:
//
//   - A leading byte order mark is dropped; UTF-16 input with a BOM is
//     transcoded to UTF-8 (spreadsheet exports often carry one)
//   - Invalid UTF-8 sequences become U+FFFD instead of failing the read
//
// Use NewReader to apply the same normalization to any stream.
package rowsio

import (
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Format identifies a rows document encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// NewReader wraps r so that it yields valid UTF-8 without a byte order mark.
// It streams; memory use does not grow with the input.
func NewReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// FormatForPath picks the format from a file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("rows file %s: extension must be .json or .csv", path)
}

// FormatForContentType picks the format from a Content-Type header value.
func FormatForContentType(contentType string) (Format, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("content type %q: %w", contentType, err)
	}
	switch mediaType {
	case "text/csv", "application/csv":
		return FormatCSV, nil
	case "application/json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("content type %q: must be text/csv or application/json", mediaType)
}

// Read decodes a rows document in the given format.
func Read(r io.Reader, format Format, opts Options) (Dataset, error) {
	switch format {
	case FormatCSV:
		return ReadCSV(r, opts)
	case FormatJSON:
		return ReadJSON(r, opts)
	}
	return Dataset{}, fmt.Errorf("unknown rows format %q", format)
}

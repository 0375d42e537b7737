package records

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// ContentRecord is one desired download. ContentUrl is the only required
// field, the hierarchy labels may all be empty.
type ContentRecord struct {
	Course     string
	Module     string
	Section    string
	Unit       string
	ContentUrl string
}

// ContentName picks the most specific non-empty label for display and
// filename purposes.
func (r ContentRecord) ContentName() string {
	switch {
	case r.Unit != "":
		return r.Unit
	case r.Section != "":
		return r.Section
	case r.Module != "":
		return r.Module
	}
	return "untitled"
}

type Format int

const (
	// course, module, section, unit, content_url
	FormatHierarchical Format = iota
	// legacy: content_name, content_url
	FormatSimple
)

func (f Format) String() string {
	if f == FormatSimple {
		return "simple"
	}
	return "hierarchical"
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		// a UTF-8 BOM on the first column is common in spreadsheet exports
		name = strings.TrimPrefix(name, "\uFEFF")
		idx[name] = i
	}
	return idx
}

func field(row []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Read consumes a header-named CSV record stream. The hierarchical format
// carries course/module/section/unit columns, the legacy simple format only
// content_name and content_url. Detection is by header: no course or module
// column means simple.
func Read(r io.Reader) ([]ContentRecord, Format, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, FormatHierarchical, fmt.Errorf("record stream is empty")
	}
	if err != nil {
		return nil, FormatHierarchical, err
	}

	idx := headerIndex(header)
	_, hasCourse := idx["course"]
	_, hasModule := idx["module"]

	format := FormatHierarchical
	if !hasCourse && !hasModule {
		format = FormatSimple
	}

	var out []ContentRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, format, err
		}

		if format == FormatSimple {
			out = append(out, ContentRecord{
				Unit:       field(row, idx, "content_name"),
				ContentUrl: field(row, idx, "content_url"),
			})
			continue
		}
		out = append(out, ContentRecord{
			Course:     field(row, idx, "course"),
			Module:     field(row, idx, "module"),
			Section:    field(row, idx, "section"),
			Unit:       field(row, idx, "unit"),
			ContentUrl: field(row, idx, "content_url"),
		})
	}

	return out, format, nil
}

func ReadFile(path string) ([]ContentRecord, Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, FormatHierarchical, err
	}
	defer f.Close()
	return Read(f)
}

package records

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

var h5pUrlRegex = regexp.MustCompile(`(?i)h5p\.com/content/`)

// IsH5PUrl reports whether the URL points at an H5P content item.
func IsH5PUrl(url string) bool {
	return h5pUrlRegex.MatchString(url)
}

type ConvertStats struct {
	Converted    int
	SkippedZip   int
	SkippedOther int
}

// planner spreadsheet column layout, rows 1-3 are header/metadata
const (
	plannerColCourse     = 1
	plannerColModule     = 2
	plannerColSection    = 3
	plannerColSubsection = 4
	plannerColUnit       = 5
	plannerColUrl        = 6
)

// ConvertPlanner turns a raw course-planner export into the hierarchical
// record format. Hierarchy cells left blank in the export inherit the value
// of the row above, the sub-section column becomes the output section.
// Only H5P content URLs are kept. The result is written next to the input
// with a `_formatted` suffix.
func ConvertPlanner(inputPath string) (string, ConvertStats, error) {
	var stats ConvertStats

	f, err := os.Open(inputPath)
	if err != nil {
		return "", stats, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return "", stats, err
	}

	outputRows := [][]string{
		{"course", "module", "section", "unit", "content_url"},
	}

	var lastCourse, lastModule, lastSubsection string
	cell := func(row []string, i int) string {
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	start := 3
	if len(rows) < start {
		start = len(rows)
	}
	for i, row := range rows[start:] {
		if cell(row, plannerColUrl) == "" {
			continue
		}

		if v := cell(row, plannerColCourse); v != "" {
			lastCourse = v
		}
		if v := cell(row, plannerColModule); v != "" {
			lastModule = v
		}
		if v := cell(row, plannerColSubsection); v != "" {
			lastSubsection = v
		}

		unit := cell(row, plannerColUnit)
		url := cell(row, plannerColUrl)

		switch {
		case IsH5PUrl(url):
			outputRows = append(outputRows, []string{
				lastCourse, lastModule, lastSubsection, unit, url,
			})
			stats.Converted++
		case strings.Contains(strings.ToLower(url), ".zip"):
			stats.SkippedZip++
			slog.Info("skipping zip archive", "row", i+start+1, "unit", unit)
		default:
			stats.SkippedOther++
		}
	}

	ext := ".csv"
	base := strings.TrimSuffix(inputPath, ext)
	outputPath := fmt.Sprintf("%s_formatted%s", base, ext)

	out, err := os.Create(outputPath)
	if err != nil {
		return "", stats, err
	}
	defer out.Close()

	writer := csv.NewWriter(out)
	err = writer.WriteAll(outputRows)
	if err != nil {
		return "", stats, err
	}

	return outputPath, stats, nil
}

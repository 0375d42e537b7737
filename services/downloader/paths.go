package downloader

import (
	"os"
	"path/filepath"

	"h5p-downloader/lib/textutil"
)

// BuildPath derives the destination folder for a record from its hierarchy
// labels: outputRoot/Course/Module/Section, skipping empty labels entirely.
// The directory is created along with any missing ancestors, creating an
// existing folder is not an error.
func BuildPath(course, module, section, outputRoot string) (string, error) {
	parts := []string{outputRoot}
	for _, label := range []string{course, module, section} {
		if label == "" {
			continue
		}
		parts = append(parts, textutil.FolderSafeName(label))
	}

	full := filepath.Join(parts...)
	err := os.MkdirAll(full, 0755)
	if err != nil {
		return "", err
	}
	return full, nil
}

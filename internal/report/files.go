package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// WriteReportFile writes the markdown report to the output directory.
// The scan ID is part of the name so two scans on the same day never
// overwrite each other.
func WriteReportFile(content, outputDir, scanID string, scanDate time.Time, orgName string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	filename := fmt.Sprintf("%s_%s_%s.md", sanitizeFilename(orgName), scanID, scanDate.Format("20060102"))
	path := filepath.Join(outputDir, filename)
	return path, os.WriteFile(path, []byte(content), 0644)
}

func WriteWorkbookFile(f *excelize.File, outputDir, scanID string, scanDate time.Time, orgName string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	filename := fmt.Sprintf("%s_%s_%s.xlsx", sanitizeFilename(orgName), scanID, scanDate.Format("20060102"))
	path := filepath.Join(outputDir, filename)
	return path, f.SaveAs(path)
}

func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_", " ", "_")
	return replacer.Replace(s)
}

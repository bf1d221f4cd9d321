package dmap

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jdefrancesco/imgDitto/internal/dfs"
)

type exportFile struct {
	Path string `json:"path"`
	Size uint64 `json:"size"`
}

type exportGroup struct {
	Primary        string       `json:"primary"`
	DuplicateCount int          `json:"duplicate_count"`
	Duplicates     []exportFile `json:"duplicates"`
}

type exportSummary struct {
	GroupCount int           `json:"group_count"`
	Groups     []exportGroup `json:"groups"`
}

// MarshalJSON renders the mapping in the same layout WriteJSON uses.
func (d *Dmap) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.collectExportSummary())
}

// WriteJSON writes every primary and its duplicates to a JSON file.
func (d *Dmap) WriteJSON(path string) error {
	summary := d.collectExportSummary()
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	file, err := secureOutputFile(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("write JSON file %s: %w", path, err)
	}
	return nil
}

// WriteCSV writes one row per primary/duplicate pair to a CSV file.
func (d *Dmap) WriteCSV(path string) error {
	summary := d.collectExportSummary()
	file, err := secureOutputFile(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"primary", "duplicate_count", "duplicate", "size_bytes"}); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}

	for _, group := range summary.Groups {
		count := strconv.Itoa(group.DuplicateCount)
		for _, f := range group.Duplicates {
			if err := writer.Write([]string{group.Primary, count, f.Path, strconv.FormatUint(f.Size, 10)}); err != nil {
				return fmt.Errorf("write CSV row: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush CSV writer: %w", err)
	}
	return nil
}

// collectExportSummary walks primaries in insertion order and enriches each
// duplicate with its current size on disk.
func (d *Dmap) collectExportSummary() exportSummary {
	if d == nil {
		return exportSummary{Groups: []exportGroup{}}
	}

	primaries := d.Primaries()
	exportGroups := make([]exportGroup, 0, len(primaries))
	for _, p := range primaries {
		files, _ := d.Get(p)
		item := exportGroup{
			Primary:        p,
			DuplicateCount: len(files),
			Duplicates:     make([]exportFile, 0, len(files)),
		}
		for _, path := range files {
			item.Duplicates = append(item.Duplicates, exportFile{
				Path: path,
				Size: dfs.GetFileSize(path),
			})
		}
		exportGroups = append(exportGroups, item)
	}

	return exportSummary{
		GroupCount: len(exportGroups),
		Groups:     exportGroups,
	}
}

func secureOutputFile(path string) (*os.File, error) {
	if path == "" {
		return nil, errors.New("output path is empty")
	}

	clean := filepath.Clean(path)
	abs, err := filepath.Abs(clean)
	if err != nil {
		return nil, fmt.Errorf("resolve output path %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err == nil && info.IsDir() {
		return nil, fmt.Errorf("output path %s is a directory", abs)
	}

	dirPath := filepath.Dir(abs)
	base := filepath.Base(abs)

	return openFileSecure(abs, dirPath, base)
}

package generator

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// Dataset file names inside a dataset directory.
const (
	BooksFile   = "books.json"
	ReadersFile = "readers.json"
	BorrowsFile = "borrows.json"
)

// WriteDataset serializes the dataset into books.json, readers.json and
// borrows.json under dir.
func WriteDataset(dataset Dataset, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	files := []struct {
		name string
		data any
	}{
		{BooksFile, dataset.Books},
		{ReadersFile, dataset.Readers},
		{BorrowsFile, dataset.Borrows},
	}
	for _, f := range files {
		if err := writeJSON(filepath.Join(dir, f.name), f.data); err != nil {
			return err
		}
	}
	return nil
}

// ReadDataset loads a directory written by WriteDataset.
func ReadDataset(dir string) (Dataset, error) {
	var ds Dataset
	if err := readJSON(filepath.Join(dir, BooksFile), &ds.Books); err != nil {
		return Dataset{}, err
	}
	if err := readJSON(filepath.Join(dir, ReadersFile), &ds.Readers); err != nil {
		return Dataset{}, err
	}
	if err := readJSON(filepath.Join(dir, BorrowsFile), &ds.Borrows); err != nil {
		return Dataset{}, err
	}
	return ds, nil
}

func writeJSON(path string, data any) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encode json for %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, target any) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Package csvdir loads PRSA observations from a directory tree of CSV files.
package csvdir

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/couchcryptid/air-quality-forecast/internal/domain"
)

// Source walks Root recursively and parses every *.csv file it finds.
type Source struct {
	root   string
	logger *slog.Logger
}

// NewSource creates a directory source rooted at root.
func NewSource(root string, logger *slog.Logger) *Source {
	return &Source{root: root, logger: logger}
}

// Files lists the CSV files under the root in lexical order.
func (s *Source) Files() ([]string, error) {
	var files []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".csv") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", s.root, err)
	}
	slices.Sort(files)
	return files, nil
}

// Load parses and concatenates all files. An empty tree is ErrNoDataFound.
func (s *Source) Load(ctx context.Context) ([]domain.Observation, error) {
	files, err := s.Files()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no csv files under %s", domain.ErrNoDataFound, s.root)
	}

	var all []domain.Observation
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := s.loadFile(path)
		if err != nil {
			return nil, err
		}
		s.logger.Debug("csv file loaded", "file", path, "rows", len(rows))
		all = append(all, rows...)
	}
	return all, nil
}

func (s *Source) loadFile(path string) ([]domain.Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f, path)
}

func (s *Source) String() string {
	return "dir:" + s.root
}

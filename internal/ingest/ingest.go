package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/brandaorrrodrigo/enem-ia-backend/internal/store"
)

// Result summarizes one ingestion run.
type Result struct {
	FilesScanned int
	FilesSkipped int
	Inserted     int
	Duplicates   int
}

// Ingester loads question dump files into the store.
type Ingester struct {
	store *store.Store
}

func New(st *store.Store) *Ingester {
	return &Ingester{store: st}
}

// Run walks dir for .txt question dumps and imports them. Files whose
// content hash matches a previous import are skipped; questions whose
// prompt hash is already in the bank are counted as duplicates.
func (g *Ingester) Run(dir string) (*Result, error) {
	res := &Result{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".txt") {
			return nil
		}
		res.FilesScanned++
		return g.importFile(path, res)
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	slog.Info("ingestion finished",
		"files", res.FilesScanned, "skipped", res.FilesSkipped,
		"inserted", res.Inserted, "duplicates", res.Duplicates)
	return res, nil
}

func (g *Ingester) importFile(path string, res *Result) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	sum := sha256.Sum256(data)
	fileHash := hex.EncodeToString(sum[:])
	prevHash, err := g.store.GetImportedFileHash(path)
	if err != nil {
		return fmt.Errorf("check import history for %s: %w", path, err)
	}
	if prevHash == fileHash {
		slog.Info("skipping unchanged file", "path", path)
		res.FilesSkipped++
		return nil
	}

	text := string(data)
	filename := filepath.Base(path)
	meta := Metadata{
		Discipline: InferDiscipline(filename, text),
		Year:       YearFromFilename(filename),
	}

	questions := Parse(text, meta)
	slog.Info("parsed question file", "path", path, "questions", len(questions),
		"discipline", meta.Discipline, "year", meta.Year)

	for _, q := range questions {
		exists, err := g.store.QuestionHashExists(q.Hash)
		if err != nil {
			return fmt.Errorf("check question hash: %w", err)
		}
		if exists {
			res.Duplicates++
			continue
		}
		if _, err := g.store.InsertQuestion(q); err != nil {
			return fmt.Errorf("insert question from %s: %w", path, err)
		}
		res.Inserted++
	}

	if err := g.store.SetImportedFileHash(path, fileHash); err != nil {
		return fmt.Errorf("record import of %s: %w", path, err)
	}
	return nil
}

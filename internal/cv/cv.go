// Package cv serves the downloadable CV documents, one PDF per language.
package cv

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ledongthuc/pdf"

	"homedeck/models"
)

var (
	ErrNotFound = errors.New("cv: document not found")
	ErrInvalid  = errors.New("cv: document is not a readable pdf")
)

// Document is a validated CV file.
type Document struct {
	Name     string
	Language string
	Pages    int
	ModTime  time.Time
	Data     []byte
}

// Library reads CV_<lang>.pdf files from a directory.
type Library struct {
	dir string
}

// NewLibrary returns a Library rooted at dir.
func NewLibrary(dir string) *Library {
	return &Library{dir: dir}
}

// FileName is the document name for lang.
func FileName(lang string) string {
	return "CV_" + lang + ".pdf"
}

// Open returns the document for lang, falling back to the Norwegian one.
func (l *Library) Open(lang string) (*Document, error) {
	lang = models.NormalizeLanguage(lang)
	if lang == "" {
		lang = models.LanguageNorwegian
	}
	doc, err := l.load(lang)
	if errors.Is(err, ErrNotFound) && lang != models.LanguageNorwegian {
		return l.load(models.LanguageNorwegian)
	}
	return doc, err
}

func (l *Library) load(lang string) (*Document, error) {
	path := filepath.Join(l.dir, FileName(lang))
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pages, err := Inspect(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Document{
		Name:     FileName(lang),
		Language: lang,
		Pages:    pages,
		ModTime:  info.ModTime(),
		Data:     data,
	}, nil
}

// Inspect parses data as a PDF and returns its page count.
func Inspect(data []byte) (pages int, err error) {
	defer func() {
		if recover() != nil {
			pages, err = 0, ErrInvalid
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	pages = reader.NumPage()
	if pages == 0 {
		return 0, ErrInvalid
	}
	return pages, nil
}

package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/raglite-go/raglite/internal/scanner"
	"github.com/raglite-go/raglite/internal/store"
)

// discoveredFile is one file found during directory discovery, classified
// into the engine's content-type vocabulary (as opposed to the scanner's
// finer-grained code/markdown/text/config split).
type discoveredFile struct {
	path        string // relative to root
	absPath     string
	language    string
	contentType store.ContentType
	chunkKind   chunkKind
}

// chunkKind selects which chunker a discovered file is routed to. It is a
// finer split than store.ContentType: code and markdown both end up as
// ContentType "text" in the corpus, but are chunked differently.
type chunkKind int

const (
	chunkKindText chunkKind = iota
	chunkKindMarkdown
	chunkKindCode
	chunkKindImage
)

var imageExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
}

// discoverFiles walks root honoring gitignore and the caller's include/
// exclude patterns, classifying each file for chunking.
func (p *Pipeline) discoverFiles(ctx context.Context, root string, opts Options) ([]discoveredFile, error) {
	s, err := scanner.New()
	if err != nil {
		return nil, fmt.Errorf("create scanner: %w", err)
	}

	exclude := append(append([]string{}, p.config.ExcludePatterns...), opts.ExcludePatterns...)
	maxSize := p.config.MaxFileSize
	if maxSize == 0 {
		maxSize = scanner.DefaultMaxFileSize
	}

	results, err := s.Scan(ctx, &scanner.ScanOptions{
		RootDir:          root,
		IncludePatterns:  opts.IncludePatterns,
		ExcludePatterns:  exclude,
		RespectGitignore: true,
		MaxFileSize:      maxSize,
	})
	if err != nil {
		return nil, fmt.Errorf("start scan: %w", err)
	}

	var files []discoveredFile
	for result := range results {
		if result.Error != nil || result.File == nil {
			continue
		}
		files = append(files, classify(result.File))
	}
	return files, nil
}

// classify maps a scanned file to the content type/chunker this corpus
// uses. Config files are treated as plain text: the corpus indexes
// document content, not build tooling.
func classify(f *scanner.FileInfo) discoveredFile {
	if mime, ok := imageExtensions[filepath.Ext(f.Path)]; ok {
		return discoveredFile{
			path: f.Path, absPath: f.AbsPath, language: mime,
			contentType: store.ContentTypeImage, chunkKind: chunkKindImage,
		}
	}

	switch f.ContentType {
	case scanner.ContentTypeMarkdown:
		return discoveredFile{path: f.Path, absPath: f.AbsPath, language: f.Language, contentType: store.ContentTypeText, chunkKind: chunkKindMarkdown}
	case scanner.ContentTypeCode:
		return discoveredFile{path: f.Path, absPath: f.AbsPath, language: f.Language, contentType: store.ContentTypeText, chunkKind: chunkKindCode}
	default:
		return discoveredFile{path: f.Path, absPath: f.AbsPath, language: f.Language, contentType: store.ContentTypeText, chunkKind: chunkKindText}
	}
}

// readFile reads a discovered file's bytes, relative to nothing: absPath
// is already resolved by the scanner.
func readFile(f discoveredFile) ([]byte, error) {
	return os.ReadFile(f.absPath)
}

package services

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/brightpath-ai/mathtutor/internal/chunker"
	"github.com/brightpath-ai/mathtutor/internal/core/domain"
	"github.com/brightpath-ai/mathtutor/internal/core/ports/driven"
	"github.com/brightpath-ai/mathtutor/internal/core/ports/driving"
	"github.com/brightpath-ai/mathtutor/internal/logger"
)

// Ensure Ingestor implements the interface.
var _ driving.IngestService = (*Ingestor)(nil)

// watchDebounce coalesces rapid successive writes to the same file.
const watchDebounce = 500 * time.Millisecond

// CommandRunner executes an external command and returns its stdout.
// Pulled out as an interface so PDF extraction is testable without a
// pdftotext binary.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Ingestor loads source documents into the vector index: read, split, embed,
// upsert. Ingestion runs offline and is idempotent; re-ingesting an unchanged
// file rewrites the same chunk IDs.
type Ingestor struct {
	splitter *chunker.Splitter
	embedder driven.Embedder
	index    driven.VectorIndex
	runner   CommandRunner
}

// NewIngestor creates an ingestor over the given splitter, embedder and index.
func NewIngestor(splitter *chunker.Splitter, embedder driven.Embedder, index driven.VectorIndex) *Ingestor {
	return &Ingestor{
		splitter: splitter,
		embedder: embedder,
		index:    index,
		runner:   execRunner{},
	}
}

// SetRunner replaces the external command runner. Used in tests.
func (in *Ingestor) SetRunner(r CommandRunner) { in.runner = r }

// supportedExtensions maps file extensions to ingestion support.
var supportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".text": true,
	".pdf":  true,
}

// IngestDir processes every supported document under dir. Per-source
// failures are recorded in the summary and do not abort the run; the caller
// decides whether a partial run is acceptable.
func (in *Ingestor) IngestDir(ctx context.Context, dir string) (domain.IngestSummary, error) {
	logger.Section("Ingestion")
	logger.Info("Ingesting directory %s", dir)

	var summary domain.IngestSummary

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		written, ingestErr := in.IngestFile(ctx, path)
		if ingestErr != nil {
			logger.Error("Failed to ingest %s: %v", path, ingestErr)
			summary.Failures = append(summary.Failures, domain.IngestFailure{
				SourceID: filepath.Base(path),
				Err:      ingestErr,
			})
			return nil
		}
		summary.Documents++
		summary.Chunks += written
		return nil
	})
	if err != nil {
		return summary, fmt.Errorf("walking %s: %w", dir, err)
	}

	logger.Info("Ingested %d documents, %d chunks, %d failures",
		summary.Documents, summary.Chunks, len(summary.Failures))
	return summary, nil
}

// IngestFile processes a single document: extract text, split into chunks,
// embed every chunk, and replace the source's entries in the index. Returns
// the number of chunks written.
func (in *Ingestor) IngestFile(ctx context.Context, path string) (int, error) {
	content, err := in.extractText(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}

	doc := domain.Document{
		SourceID:   filepath.Base(path),
		URI:        path,
		Content:    content,
		IngestedAt: time.Now(),
	}

	chunks := in.splitter.Split(doc)
	if len(chunks) == 0 {
		logger.Warn("Document %s is empty, nothing to index", doc.SourceID)
		return 0, nil
	}
	logger.Debug("Split %s into %d chunks", doc.SourceID, len(chunks))

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	vectors, err := in.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding %s: %w", doc.SourceID, err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedding %s: got %d vectors for %d chunks",
			doc.SourceID, len(vectors), len(chunks))
	}

	entries := make([]domain.IndexEntry, len(chunks))
	for i, ch := range chunks {
		entries[i] = domain.IndexEntry{
			ChunkID:   ch.ID,
			SourceID:  ch.SourceID,
			Text:      ch.Text,
			Embedding: vectors[i],
		}
	}

	if err := in.index.Upsert(ctx, entries); err != nil {
		return 0, fmt.Errorf("indexing %s: %w", doc.SourceID, err)
	}

	logger.Info("Indexed %s: %d chunks", doc.SourceID, len(entries))
	return len(entries), nil
}

// extractText reads the document content. PDFs go through pdftotext; plain
// text formats are read directly.
func (in *Ingestor) extractText(ctx context.Context, path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		out, err := in.runner.Run(ctx, "pdftotext", path, "-")
		if err != nil {
			return "", fmt.Errorf("pdftotext: %w", err)
		}
		return string(out), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Watch re-ingests supported files under dir as they are created or written,
// until ctx is done. Events are debounced per file so editors that write in
// bursts trigger a single re-ingestion.
func (in *Ingestor) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	logger.Info("Watching %s for changes", dir)

	var mu sync.Mutex
	timers := make(map[string]*time.Timer)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			if !supportedExtensions[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}

			path := event.Name
			mu.Lock()
			if t, exists := timers[path]; exists {
				t.Stop()
			}
			timers[path] = time.AfterFunc(watchDebounce, func() {
				written, err := in.IngestFile(ctx, path)
				if err != nil {
					logger.Error("Re-ingest of %s failed: %v", path, err)
					return
				}
				logger.Info("Re-ingested %s: %d chunks", path, written)
			})
			mu.Unlock()

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watch error: %v", watchErr)
		}
	}
}

// Package library turns a folder into an ordered playback queue.
package library

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/austinkregel/local-media/ampd/internal/metadata"
)

// SupportedExtensions are the audio file extensions we recognize
var SupportedExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".ogg":  true,
	".flac": true,
}

// IsSupported reports whether path has a playable extension (case-insensitive)
func IsSupported(path string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// Builder lists a folder and orders its audio files
type Builder struct {
	reader  metadata.Reader
	workers int
}

// NewBuilder creates a builder that reads track numbers with reader
func NewBuilder(reader metadata.Reader) *Builder {
	return &Builder{
		reader:  reader,
		workers: 4,
	}
}

// candidate is a listed file plus its track number, if any
type candidate struct {
	path     string
	track    int
	hasTrack bool
}

// Build returns the playback order for the immediate audio files of dir.
// When every file carries a track number the queue is ordered by it (ties
// keep listing order), otherwise by full path. An empty result is not an
// error; only an unreadable directory is.
func (b *Builder) Build(ctx context.Context, dir string) ([]string, error) {
	start := time.Now()

	paths, err := listAudio(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		log.Printf("[LIBRARY] No audio files in %s", dir)
		return []string{}, nil
	}

	cands, err := b.readTracks(ctx, paths)
	if err != nil {
		return nil, err
	}

	ordered := order(cands)
	log.Printf("[LIBRARY] Built queue of %d files from %s in %dms", len(ordered), dir, time.Since(start).Milliseconds())
	return ordered, nil
}

// listAudio lists dir non-recursively, keeping supported files
func listAudio(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read folder: %w", err)
	}

	files := lo.Filter(entries, func(e os.DirEntry, _ int) bool {
		return !e.IsDir() && IsSupported(e.Name())
	})
	return lo.Map(files, func(e os.DirEntry, _ int) string {
		return filepath.Join(dir, e.Name())
	}), nil
}

// readTracks reads track numbers in parallel, keeping the input order
func (b *Builder) readTracks(ctx context.Context, paths []string) ([]candidate, error) {
	type indexed struct {
		index int
		cand  candidate
	}

	jobs := make(chan int, len(paths))
	results := make(chan indexed, len(paths))

	var wg sync.WaitGroup
	for w := 0; w < b.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				md := b.reader.Read(paths[i])
				results <- indexed{index: i, cand: candidate{
					path:     paths[i],
					track:    md.TrackNumber,
					hasTrack: md.HasTrack,
				}}
			}
		}()
	}

	for i := range paths {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	cands := make([]candidate, len(paths))
	for r := range results {
		cands[r.index] = r.cand
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return cands, nil
}

// order applies the all-or-nothing track number rule
func order(cands []candidate) []string {
	allNumbered := lo.EveryBy(cands, func(c candidate) bool { return c.hasTrack })

	sorted := make([]candidate, len(cands))
	copy(sorted, cands)

	if allNumbered {
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].track < sorted[j].track
		})
	} else {
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].path < sorted[j].path
		})
	}

	return lo.Map(sorted, func(c candidate, _ int) string { return c.path })
}

package scanner

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"cadenza/internal/library"
	"cadenza/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Scanner discovers audio files under the configured library path and
// imports them. The walk and the metadata extraction never touch the store;
// records are collected first and batch-inserted afterwards, so a long
// directory enumeration holds no database lock.
type Scanner struct {
	library   *library.Library
	extractor *Extractor
	root      string
	logger    *logrus.Logger
}

// NewScanner creates a scanner rooted at the given directory.
func NewScanner(lib *library.Library, extractor *Extractor, root string) *Scanner {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Scanner{
		library:   lib,
		extractor: extractor,
		root:      root,
		logger:    logger,
	}
}

// Scan walks the library directory, extracts metadata with a worker pool and
// batch-imports the results. Returns the number of newly inserted songs.
func (s *Scanner) Scan() (int, error) {
	batchID := uuid.NewString()
	s.logger.WithFields(logrus.Fields{
		"library_path": s.root,
		"batch_id":     batchID,
	}).Info("Scanning music library")

	var paths []string
	walkErr := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		name := filepath.Base(path)
		if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".tmp") {
			return nil
		}
		if s.extractor.IsAudioFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if walkErr != nil {
		return 0, walkErr
	}

	records := s.extractAll(paths)

	inserted, err := s.library.ImportScan(records)
	if err != nil {
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{
		"batch_id": batchID,
		"files":    len(paths),
		"inserted": inserted,
	}).Info("Library scan complete")
	return inserted, nil
}

// extractAll runs metadata extraction over a worker pool sized to the CPU
// count. Files that fail to extract are skipped with a log line.
func (s *Scanner) extractAll(paths []string) []models.ScanRecord {
	jobs := make(chan string, 100)
	results := make(chan models.ScanRecord, 100)

	var wg sync.WaitGroup
	for i := 0; i < runtime.NumCPU(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				record, err := s.extractor.ExtractFromFile(path)
				if err != nil {
					s.logger.WithError(err).WithField("file_path", path).Error("Failed to extract metadata")
					continue
				}
				results <- record
			}
		}()
	}

	go func() {
		for _, path := range paths {
			jobs <- path
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	var records []models.ScanRecord
	for record := range results {
		records = append(records, record)
	}
	return records
}

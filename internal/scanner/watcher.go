package scanner

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"cadenza/pkg/models"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher keeps the library in sync with the filesystem: new audio files are
// extracted and imported, removed files are deleted from the catalog (which
// cascades through every playlist and link table).
type Watcher struct {
	scanner *Scanner
	watcher *fsnotify.Watcher
}

// StartWatcher begins recursive monitoring of the scanner's library root.
func (s *Scanner) StartWatcher() (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{scanner: s, watcher: fsWatcher}
	go w.watch()

	if err := w.addRecursive(s.root); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	s.logger.WithField("library_path", s.root).Info("File watcher started")
	return w, nil
}

// Stop closes the watcher (idempotent).
func (w *Watcher) Stop() {
	if w.watcher != nil {
		w.watcher.Close()
	}
}

// addRecursive walks the tree and registers every directory.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

// watch selects on watcher channels and dispatches events.
func (w *Watcher) watch() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.scanner.logger.WithError(err).Error("File watcher error")
		}
	}
}

// handleEvent filters temporary/hidden files and delegates create/remove
// actions.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".tmp") {
		return
	}

	isAudio := w.scanner.extractor.IsAudioFile(event.Name)

	switch {
	case event.Has(fsnotify.Create) && isAudio:
		go func(path string) {
			time.Sleep(500 * time.Millisecond) // let the file finish writing
			w.handleNewFile(path)
		}(event.Name)

	case event.Has(fsnotify.Remove) && isAudio:
		go w.handleRemovedFile(event.Name)

	case event.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.watcher.Add(event.Name)
			w.scanner.logger.WithField("directory", event.Name).Info("Watching new directory")
		}
	}
}

// handleNewFile extracts metadata and imports the song.
func (w *Watcher) handleNewFile(filePath string) {
	logger := w.scanner.logger
	logger.WithField("file_path", filePath).Info("New audio file detected")

	record, err := w.scanner.extractor.ExtractFromFile(filePath)
	if err != nil {
		logger.WithError(err).WithField("file_path", filePath).Error("Failed to extract metadata")
		return
	}

	if _, err := w.scanner.library.ImportScan([]models.ScanRecord{record}); err != nil {
		logger.WithError(err).WithField("file_path", filePath).Error("Failed to import new song")
		return
	}

	logger.WithFields(logrus.Fields{
		"title":  record.Title,
		"artist": record.ArtistNameString,
	}).Info("Added new song")
}

// handleRemovedFile deletes the song referencing a removed audio file.
func (w *Watcher) handleRemovedFile(filePath string) {
	logger := w.scanner.logger
	logger.WithField("file_path", filePath).Info("Audio file removed")

	deleted, err := w.scanner.library.DeleteSongByPath(filePath)
	if err != nil {
		logger.WithError(err).WithField("file_path", filePath).Error("Failed to remove song")
		return
	}
	if deleted {
		logger.WithField("file_path", filePath).Info("Removed song from library")
	}
}

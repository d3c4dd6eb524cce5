package scanner

import (
	"crypto/md5"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cadenza/pkg/models"

	"github.com/dhowden/tag"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/sirupsen/logrus"
	"github.com/tcolgate/mp3"
)

// Extractor reads audio files and produces scan records for the library.
// Embedded cover art is kept in an in-memory cache keyed by content hash;
// the hash is what lands in the song's album_art column.
type Extractor struct {
	supportedFormats []string
	logger           *logrus.Logger

	artMu    sync.RWMutex
	artCache map[string][]byte
}

// NewExtractor creates an extractor accepting the given file extensions
// (e.g. ".mp3", ".flac").
func NewExtractor(supportedFormats []string) *Extractor {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Extractor{
		supportedFormats: supportedFormats,
		logger:           logger,
		artCache:         make(map[string][]byte),
	}
}

// IsAudioFile checks whether the path has a supported audio extension.
func (e *Extractor) IsAudioFile(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, format := range e.supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}

// ExtractFromFile reads tags and duration from an audio file. Unreadable
// tags degrade to the file name as title with empty artist/genre strings;
// an unreadable duration degrades to 0 (unknown). Only opening the file is
// fatal.
func (e *Extractor) ExtractFromFile(filePath string) (models.ScanRecord, error) {
	file, err := os.Open(filePath)
	if err != nil {
		e.logger.WithError(err).WithField("file_path", filePath).Error("Failed to open audio file")
		return models.ScanRecord{}, err
	}
	defer file.Close()

	duration, err := e.duration(filePath)
	if err != nil {
		e.logger.WithError(err).WithField("file_path", filePath).Warn("Failed to calculate duration, setting to 0")
		duration = 0
	}

	record := models.ScanRecord{
		Path:     filePath,
		Duration: duration,
	}

	metadata, err := tag.ReadFrom(file)
	if err != nil {
		record.Title = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
		e.logger.WithError(err).WithField("file_path", filePath).Warn("Failed to read tags, using filename")
		return record, nil
	}

	record.Title = metadata.Title()
	if record.Title == "" {
		record.Title = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	}
	record.ArtistNameString = metadata.Artist()
	record.GenreString = metadata.Genre()
	record.AlbumArt = e.cacheAlbumArt(metadata)

	e.logger.WithFields(logrus.Fields{
		"file_path": filePath,
		"title":     record.Title,
		"artist":    record.ArtistNameString,
		"duration":  record.Duration,
	}).Debug("Extracted metadata")

	return record, nil
}

// cacheAlbumArt stores embedded cover art under a content-addressed id and
// returns the id, or "" when no art is embedded.
func (e *Extractor) cacheAlbumArt(metadata tag.Metadata) string {
	picture := metadata.Picture()
	if picture == nil {
		return ""
	}

	hash := md5.Sum(picture.Data)
	artID := fmt.Sprintf("%x", hash)

	e.artMu.Lock()
	e.artCache[artID] = picture.Data
	e.artMu.Unlock()

	return artID
}

// AlbumArt retrieves cached cover art by id.
func (e *Extractor) AlbumArt(artID string) ([]byte, bool) {
	e.artMu.RLock()
	data, exists := e.artCache[artID]
	e.artMu.RUnlock()
	return data, exists
}

// duration dispatches to a per-format parser. Formats without a parser
// report 0 (unknown) rather than failing the scan.
func (e *Extractor) duration(filePath string) (int, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".mp3":
		return e.durationMP3(filePath)
	case ".flac":
		return e.durationFLAC(filePath)
	case ".wav":
		return e.durationWAV(filePath)
	case ".m4a":
		return e.durationM4A(filePath)
	default:
		return 0, nil
	}
}

// MP3 duration by decoding frames; falls back to an average-bitrate estimate
// only when no frame decodes at all.
func (e *Extractor) durationMP3(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var total float64
	var skipped int
	frames := 0
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if frames == 0 {
				return e.estimateFromFileSize(path, 192000) // assume 192 kbps
			}
			break // partial decode; use what we have
		}
		total += fr.Duration().Seconds()
		frames++
	}
	return int(total), nil
}

// FLAC duration from the STREAMINFO metadata block.
func (e *Extractor) durationFLAC(path string) (int, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0, err
	}
	info := stream.Info
	if info.NSamples == 0 || info.SampleRate == 0 {
		return 0, fmt.Errorf("flac stream missing sample info")
	}
	return int(float64(info.NSamples)/float64(info.SampleRate) + 0.5), nil
}

// WAV duration from the header plus the PCM byte count. Approximate: the
// sample count is derived from file size rather than decoding every sample.
func (e *Extractor) durationWAV(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("invalid wav file")
	}
	if dec.SampleRate == 0 || dec.BitDepth == 0 || dec.NumChans == 0 {
		return 0, fmt.Errorf("invalid wav header")
	}

	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	pcmBytes := st.Size() - 44 // standard header size
	if pcmBytes < 0 {
		pcmBytes = 0
	}
	frameSize := int64(dec.BitDepth/8) * int64(dec.NumChans)
	if frameSize <= 0 {
		return 0, fmt.Errorf("invalid sample frame size")
	}
	return int(float64(pcmBytes/frameSize)/float64(dec.SampleRate) + 0.5), nil
}

// M4A duration from the mvhd atom (timescale + duration units). Manual atom
// scan keeps the dependency surface small; best-effort.
func (e *Extractor) durationM4A(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	head := make([]byte, 8)
	for {
		if _, err := io.ReadFull(f, head); err != nil {
			return 0, err
		}
		size := binary.BigEndian.Uint32(head[0:4])
		if size < 8 {
			return 0, fmt.Errorf("invalid atom size")
		}
		if string(head[4:8]) != "moov" {
			if _, err := f.Seek(int64(size)-8, io.SeekCurrent); err != nil {
				return 0, err
			}
			continue
		}

		limit := int64(size) - 8
		for read := int64(0); read < limit; {
			if _, err := io.ReadFull(f, head); err != nil {
				return 0, err
			}
			subSize := binary.BigEndian.Uint32(head[0:4])
			if subSize < 8 {
				return 0, fmt.Errorf("invalid sub-atom size")
			}
			if string(head[4:8]) != "mvhd" {
				if _, err := f.Seek(int64(subSize)-8, io.SeekCurrent); err != nil {
					return 0, err
				}
				read += int64(subSize)
				continue
			}

			version := make([]byte, 1)
			if _, err := io.ReadFull(f, version); err != nil {
				return 0, err
			}
			skip := int64(3 + 4 + 4) // flags + 32-bit creation/modification times
			if version[0] == 1 {
				skip = 3 + 8 + 8
			}
			if _, err := f.Seek(skip, io.SeekCurrent); err != nil {
				return 0, err
			}

			buf := make([]byte, 8)
			if _, err := io.ReadFull(f, buf); err != nil {
				return 0, err
			}
			timescale := binary.BigEndian.Uint32(buf[0:4])
			durUnits := binary.BigEndian.Uint32(buf[4:8])
			if timescale == 0 {
				return 0, fmt.Errorf("invalid timescale")
			}
			return int(float64(durUnits)/float64(timescale) + 0.5), nil
		}
		return 0, fmt.Errorf("mvhd atom not found")
	}
}

// estimateFromFileSize is a last-resort duration estimate when frame
// decoding fails entirely.
func (e *Extractor) estimateFromFileSize(path string, bitrate int) (int, error) {
	st, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if bitrate <= 0 {
		return 0, fmt.Errorf("invalid bitrate")
	}
	return int((st.Size() * 8) / int64(bitrate)), nil
}

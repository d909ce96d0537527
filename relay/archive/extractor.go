// Package archive unpacks the binary resource bundles competition software
// pushes over the ingress socket: flag, logo and picture images plus style
// sheets, written under the local files directory, and translation bundles,
// which are parsed instead of written.
package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/openlifting/liftcast/io/file"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "archive")

// Asset categories, doubling as directory names under the local files dir.
const (
	CategoryFlags    = "flags"
	CategoryLogos    = "logos"
	CategoryPictures = "pictures"
	CategoryStyles   = "styles"
)

// Extractor writes archive entries below a fixed local directory. One
// extractor instance serializes writes per category through the hub context;
// readers are external static-file servers.
type Extractor struct {
	localDir string
}

// NewExtractor creates an extractor rooted at localDir.
func NewExtractor(localDir string) *Extractor {
	return &Extractor{localDir: localDir}
}

// LocalDir returns the extraction root.
func (e *Extractor) LocalDir() string {
	return e.localDir
}

// Extract unpacks a ZIP buffer into <localDir>/<category>/. Unsafe entry
// names are skipped, and a failing entry does not abort the rest of the
// archive. Returns the number of entries actually written together with the
// first error encountered, if any.
func (e *Extractor) Extract(category string, data []byte) (int, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, errors.Wrap(err, "could not open archive")
	}

	targetDir := filepath.Join(e.localDir, category)
	if err := file.MkdirAll(targetDir); err != nil {
		return 0, errors.Wrapf(err, "could not create %s", targetDir)
	}

	written := 0
	var firstErr error
	for _, entry := range r.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		name, ok := safeEntryName(entry.Name)
		if !ok {
			log.WithFields(logrus.Fields{
				"category": category,
				"entry":    entry.Name,
			}).Warn("Skipping unsafe archive entry")
			continue
		}
		if err := e.writeEntry(targetDir, name, entry); err != nil {
			log.WithError(err).WithField("entry", name).Error("Could not extract archive entry")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		written++
	}

	log.WithFields(logrus.Fields{
		"category": category,
		"entries":  written,
		"size":     humanize.Bytes(uint64(len(data))),
	}).Debug("Extracted archive")
	return written, firstErr
}

func (e *Extractor) writeEntry(targetDir, name string, entry *zip.File) error {
	rc, err := entry.Open()
	if err != nil {
		return errors.Wrap(err, "could not open entry")
	}
	defer func() {
		if err := rc.Close(); err != nil {
			log.WithError(err).Debug("Could not close archive entry")
		}
	}()

	data, err := io.ReadAll(rc)
	if err != nil {
		return errors.Wrap(err, "could not read entry")
	}

	target := filepath.Join(targetDir, filepath.FromSlash(name))
	if dir := filepath.Dir(target); dir != targetDir {
		if err := file.MkdirAll(dir); err != nil {
			return err
		}
	}
	return file.WriteFile(target, data)
}

// safeEntryName normalizes a ZIP entry name and rejects anything that could
// escape the target directory: parent traversal, absolute paths, drive
// letters, empty names.
func safeEntryName(name string) (string, bool) {
	name = strings.ReplaceAll(name, `\`, "/")
	if name == "" || strings.HasPrefix(name, "/") {
		return "", false
	}
	if len(name) >= 2 && name[1] == ':' {
		return "", false
	}
	cleaned := path.Clean(name)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", false
	}
	return cleaned, true
}

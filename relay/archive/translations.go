package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// translationsEntry is the well-known file name inside a translations bundle.
const translationsEntry = "translations.json"

// checksumField carries the sender-side table checksum when present.
const checksumField = "translationsChecksum"

// ParseTranslations locates translations.json inside a ZIP buffer and decodes
// it into per-locale key/value tables plus the sender checksum. Two layouts
// are accepted: locale tables nested under a "locales" object, or locale
// tables flat at the top level next to the checksum field.
func ParseTranslations(data []byte) (map[string]map[string]string, string, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, "", errors.Wrap(err, "could not open translations bundle")
	}

	var raw []byte
	for _, entry := range r.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		if baseName(entry.Name) != translationsEntry {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return nil, "", errors.Wrap(err, "could not open translations entry")
		}
		raw, err = io.ReadAll(rc)
		if cerr := rc.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, "", errors.Wrap(err, "could not read translations entry")
		}
		break
	}
	if raw == nil {
		return nil, "", errors.Errorf("bundle has no %s entry", translationsEntry)
	}
	return decodeTranslations(raw)
}

func decodeTranslations(raw []byte) (map[string]map[string]string, string, error) {
	var top map[string]jsoniter.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, "", errors.Wrap(err, "could not decode translations")
	}

	checksum := ""
	if c, ok := top[checksumField]; ok {
		if err := json.Unmarshal(c, &checksum); err != nil {
			return nil, "", errors.Wrap(err, "could not decode translations checksum")
		}
	}

	if nested, ok := top["locales"]; ok {
		locales := make(map[string]map[string]string)
		if err := json.Unmarshal(nested, &locales); err != nil {
			return nil, "", errors.Wrap(err, "could not decode locale tables")
		}
		return locales, checksum, nil
	}

	locales := make(map[string]map[string]string)
	for key, value := range top {
		if key == checksumField {
			continue
		}
		table := make(map[string]string)
		if err := json.Unmarshal(value, &table); err != nil {
			return nil, "", errors.Wrapf(err, "could not decode locale %q", key)
		}
		locales[key] = table
	}
	if len(locales) == 0 {
		return nil, "", errors.New("translations bundle has no locale tables")
	}
	return locales, checksum, nil
}

func baseName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}

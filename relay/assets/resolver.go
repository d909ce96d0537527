// Package assets resolves team flags, club logos, athlete pictures and style
// sheets against the local files directory, returning the /local/ URL the
// HTTP layer serves them under. Probes hit the filesystem once and are
// memoized; archive delivery flushes the memo.
package assets

import (
	"os"
	"path"
	"path/filepath"

	"github.com/openlifting/liftcast/config/params"
	"github.com/openlifting/liftcast/relay/archive"
	"github.com/patrickmn/go-cache"
)

var flagExtensions = []string{".svg", ".png", ".gif", ".jpg", ".jpeg", ".webp"}
var pictureExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// Resolver maps asset identifiers to their serving URLs, or to the empty
// string when the asset does not exist on disk.
type Resolver struct {
	localDir string
	probes   *cache.Cache
}

// NewResolver creates a resolver rooted at localDir. Probe results are
// memoized for the configured TTL; archive delivery flushes the memo anyway.
func NewResolver(localDir string) *Resolver {
	ttl := params.Relay().AssetProbeTTL
	return &Resolver{
		localDir: localDir,
		probes:   cache.New(ttl, 2*ttl),
	}
}

// FlagURL resolves a team flag code such as "DEN".
func (r *Resolver) FlagURL(code string) string {
	return r.probe(archive.CategoryFlags, code, flagExtensions)
}

// LogoURL resolves a club or federation logo name.
func (r *Resolver) LogoURL(name string) string {
	return r.probe(archive.CategoryLogos, name, flagExtensions)
}

// PictureURL resolves an athlete picture by membership or athlete key.
func (r *Resolver) PictureURL(key string) string {
	return r.probe(archive.CategoryPictures, key, pictureExtensions)
}

// StyleURL resolves a style sheet by its full file name.
func (r *Resolver) StyleURL(name string) string {
	return r.probe(archive.CategoryStyles, name, nil)
}

// Flush drops all memoized probes. Called when an archive delivery may have
// changed what exists on disk.
func (r *Resolver) Flush() {
	r.probes.Flush()
}

func (r *Resolver) probe(category, name string, extensions []string) string {
	if name == "" {
		return ""
	}
	key := category + "/" + name
	if v, ok := r.probes.Get(key); ok {
		if url, ok := v.(string); ok {
			return url
		}
	}
	url := r.resolve(category, name, extensions)
	r.probes.Set(key, url, cache.DefaultExpiration)
	return url
}

func (r *Resolver) resolve(category, name string, extensions []string) string {
	if len(extensions) == 0 {
		if fileExists(filepath.Join(r.localDir, category, name)) {
			return path.Join("/local", category, name)
		}
		return ""
	}
	for _, ext := range extensions {
		if fileExists(filepath.Join(r.localDir, category, name+ext)) {
			return path.Join("/local", category, name+ext)
		}
	}
	return ""
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

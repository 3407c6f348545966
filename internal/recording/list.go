package recording

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Info is one entry of a recordings directory listing.
type Info struct {
	Name    string    `json:"name" yaml:"name"`
	Path    string    `json:"path" yaml:"path"`
	Size    int64     `json:"size" yaml:"size"`
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`
}

// List returns the .cuerec files under dir, newest first. A missing
// directory is an empty listing, not an error.
func List(dir string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list recordings: %w", err)
	}

	var infos []Info
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), Ext) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		infos = append(infos, Info{
			Name:    e.Name(),
			Path:    filepath.Join(dir, e.Name()),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ModTime.After(infos[j].ModTime) })
	return infos, nil
}

// Resolve turns an operator-supplied name into a path under dir. Absolute
// paths and names already carrying the extension pass through.
func Resolve(dir, name string) string {
	if !strings.EqualFold(filepath.Ext(name), Ext) {
		name += Ext
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

package layout

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/forPelevin/clipsai/internal/types"
)

const (
	VideosName   = "videos"
	ClipsName    = "clips"
	SubsName     = "subtitles"
	DesignedName = "designed"

	// SubsAlias is the older name HTTP clients use for the subtitles stage.
	SubsAlias = "subtitled"
)

// DirError reports a stage directory that could not be created.
type DirError struct {
	Path string
	Err  error
}

func (e *DirError) Error() string {
	return fmt.Sprintf("create directory %s: %v", e.Path, e.Err)
}

func (e *DirError) Unwrap() error { return e.Err }

// Resolve computes the layout for projectDir. The media root is mediaOverride
// when set, otherwise the parent of projectDir.
func Resolve(projectDir, mediaOverride string) (types.Layout, error) {
	if projectDir == "" {
		return types.Layout{}, errors.New("project dir is empty")
	}
	proj, err := filepath.Abs(projectDir)
	if err != nil {
		return types.Layout{}, fmt.Errorf("resolve project dir: %w", err)
	}

	media := filepath.Dir(proj)
	if mediaOverride != "" {
		media, err = filepath.Abs(mediaOverride)
		if err != nil {
			return types.Layout{}, fmt.Errorf("resolve media dir: %w", err)
		}
	}

	return types.Layout{
		ProjectDir:  proj,
		MediaDir:    media,
		VideosDir:   filepath.Join(media, VideosName),
		ClipsDir:    filepath.Join(media, ClipsName),
		SubsDir:     filepath.Join(media, SubsName),
		DesignedDir: filepath.Join(media, DesignedName),
	}, nil
}

// Ensure creates the four stage directories. Existing directories are fine.
func Ensure(l types.Layout) error {
	for _, dir := range l.StageDirs() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &DirError{Path: dir, Err: err}
		}
	}
	return nil
}

// DefaultProjectDir is the directory holding the running executable.
func DefaultProjectDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// Dir maps a stage name to its directory. ok is false for unknown names.
func Dir(l types.Layout, name string) (string, bool) {
	switch name {
	case VideosName:
		return l.VideosDir, true
	case ClipsName:
		return l.ClipsDir, true
	case SubsName, SubsAlias:
		return l.SubsDir, true
	case DesignedName:
		return l.DesignedDir, true
	}
	return "", false
}

// Inventory lists regular files in dir matching pattern, sorted by name.
// A missing directory yields an empty list.
func Inventory(dir, pattern string) ([]types.FileInfo, error) {
	if pattern == "" {
		pattern = "*"
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	sort.Strings(matches)

	out := make([]types.FileInfo, 0, len(matches))
	for _, p := range matches {
		st, err := os.Stat(p)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		if !st.Mode().IsRegular() {
			continue
		}
		out = append(out, types.FileInfo{
			Filename: st.Name(),
			Path:     p,
			Size:     st.Size(),
			SizeMB:   roundMB(st.Size()),
			Modified: st.ModTime().Format(time.RFC3339),
		})
	}
	return out, nil
}

// Remove deletes regular files in dir matching pattern and returns how many
// were removed.
func Remove(dir, pattern string) (int, error) {
	files, err := Inventory(dir, pattern)
	if err != nil {
		return 0, err
	}
	return removeFiles(files)
}

// removeFiles counts only files this call actually deleted.
func removeFiles(files []types.FileInfo) (int, error) {
	n := 0
	for _, f := range files {
		err := os.Remove(f.Path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return n, fmt.Errorf("remove %s: %w", f.Filename, err)
		}
		n++
	}
	return n, nil
}

func roundMB(size int64) float64 {
	mb := float64(size) / (1024 * 1024)
	return float64(int64(mb*100+0.5)) / 100
}

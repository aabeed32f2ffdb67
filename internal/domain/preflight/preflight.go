package preflight

import (
	"fmt"
	"strings"

	"github.com/forPelevin/clipsai/internal/ports"
)

const (
	PythonInstallURL = "https://www.python.org/downloads/"
	FfmpegInstallURL = "https://ffmpeg.org/download.html"
	YtDlpInstallURL  = "https://github.com/yt-dlp/yt-dlp#installation"
)

// DependencyError names a required executable missing from PATH.
type DependencyError struct {
	Name       string
	InstallURL string
}

func (e *DependencyError) Error() string {
	if e.InstallURL == "" {
		return fmt.Sprintf("%s not found in PATH", e.Name)
	}
	return fmt.Sprintf("%s not found in PATH. Install from: %s", e.Name, e.InstallURL)
}

// Required returns the executables a run needs, in check order.
func Required(python string) []string {
	if python == "" {
		python = "python3"
	}
	return []string{python, "ffmpeg", "yt-dlp"}
}

// Check stops at the first name lookup cannot resolve.
func Check(lookup ports.PathLookup, names []string) error {
	for _, name := range names {
		if _, err := lookup.LookPath(name); err != nil {
			return &DependencyError{Name: name, InstallURL: installURL(name)}
		}
	}
	return nil
}

func installURL(name string) string {
	switch name {
	case "ffmpeg":
		return FfmpegInstallURL
	case "yt-dlp":
		return YtDlpInstallURL
	}
	if strings.HasPrefix(name, "python") {
		return PythonInstallURL
	}
	return ""
}

package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/clipsai/internal/ports"
	"github.com/forPelevin/clipsai/internal/types"
)

// Probe reads media metadata with ffprobe.
type Probe struct {
	ffprobe string
}

func NewProbe(ffprobePath string) *Probe {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Probe{ffprobe: ffprobePath}
}

func (p *Probe) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, p.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	return parseSeconds(string(b))
}

var mediaExt = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".webm": true,
	".mov":  true,
	".m4a":  true,
}

// Annotate fills DurationSec for media files. Files ffprobe cannot read are
// left untouched.
func (p *Probe) Annotate(ctx context.Context, files []types.FileInfo) {
	for i := range files {
		if !mediaExt[strings.ToLower(filepath.Ext(files[i].Filename))] {
			continue
		}
		d, err := p.ProbeDuration(ctx, files[i].Path)
		if err != nil {
			continue
		}
		files[i].DurationSec = d.Seconds()
	}
}

func parseSeconds(out string) (time.Duration, error) {
	s := strings.TrimSpace(out)
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

var _ ports.MediaProbe = (*Probe)(nil)

package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/forPelevin/clipsai/internal/domain/layout"
	"github.com/forPelevin/clipsai/internal/types"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3097C6"))
	nameStyle  = lipgloss.NewStyle().Width(10)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AEA47A"))
)

func writeSummary(w io.Writer, l types.Layout) error {
	lines := []string{
		titleStyle.Render("All steps completed successfully!"),
		"Media root: " + l.MediaDir,
	}
	dirs := []struct{ name, path string }{
		{layout.VideosName, l.VideosDir},
		{layout.ClipsName, l.ClipsDir},
		{layout.SubsName, l.SubsDir},
		{layout.DesignedName, l.DesignedDir},
	}
	for _, d := range dirs {
		files, err := layout.Inventory(d.path, "*")
		if err != nil {
			return fmt.Errorf("summarize %s: %w", d.name, err)
		}
		var total int64
		for _, f := range files {
			total += f.Size
		}
		lines = append(lines, fmt.Sprintf("  %s %s  %s",
			nameStyle.Render(d.name),
			fileCount(len(files)),
			mutedStyle.Render(humanize.Bytes(uint64(total))+"  "+d.path),
		))
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func fileCount(n int) string {
	if n == 1 {
		return "1 file"
	}
	return fmt.Sprintf("%d files", n)
}

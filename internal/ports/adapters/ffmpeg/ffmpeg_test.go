package ffmpeg

import (
	"context"
	"testing"
	"time"

	"github.com/forPelevin/clipsai/internal/types"
)

func TestParseSeconds(t *testing.T) {
	got, err := parseSeconds("12.500000\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != 12500*time.Millisecond {
		t.Fatalf("unexpected duration: %s", got)
	}
	if _, err := parseSeconds("N/A"); err == nil {
		t.Fatalf("expected error for N/A")
	}
}

func TestAnnotate_SkipsNonMediaAndFailures(t *testing.T) {
	p := NewProbe("clipsai-missing-ffprobe")
	files := []types.FileInfo{
		{Filename: "clip_1.srt", Path: "/nope/clip_1.srt"},
		{Filename: "clip_1.mp4", Path: "/nope/clip_1.mp4"},
	}
	p.Annotate(context.Background(), files)
	for _, f := range files {
		if f.DurationSec != 0 {
			t.Fatalf("expected no duration for %s", f.Filename)
		}
	}
}

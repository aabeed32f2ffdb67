package steps

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/forPelevin/clipsai/internal/types"
)

func testLayout() types.Layout {
	return types.Layout{
		ProjectDir:  "/home/u/clipsai",
		MediaDir:    "/home/u",
		VideosDir:   "/home/u/videos",
		ClipsDir:    "/home/u/clips",
		SubsDir:     "/home/u/subtitles",
		DesignedDir: "/home/u/designed",
	}
}

func TestClips_URLOnStdinNoArgs(t *testing.T) {
	inv := Clips{}.Invocation(types.Request{URL: "https://youtu.be/abc"}, testLayout())
	if inv.Stdin != "https://youtu.be/abc\n" {
		t.Fatalf("unexpected stdin: %q", inv.Stdin)
	}
	if len(inv.Args) != 0 {
		t.Fatalf("expected no args, got %v", inv.Args)
	}
	if inv.Program != filepath.Join("/home/u/clipsai", ClipsScript) {
		t.Fatalf("unexpected program: %s", inv.Program)
	}
	if inv.Dir != "/home/u/clipsai" {
		t.Fatalf("unexpected dir: %s", inv.Dir)
	}
}

func TestSubtitles_NoArgsNoStdin(t *testing.T) {
	inv := Subtitles{}.Invocation(types.Request{URL: "u"}, testLayout())
	if len(inv.Args) != 0 || inv.Stdin != "" {
		t.Fatalf("expected bare invocation, got args=%v stdin=%q", inv.Args, inv.Stdin)
	}
}

func TestDesign_Args(t *testing.T) {
	l := testLayout()
	tests := []struct {
		name string
		opts DesignOptions
		req  types.Request
		want []string
	}{
		{
			name: "token declined",
			req:  types.Request{URL: "u"},
			want: []string{"--subs_mode", "auto", "--subs_dir", "/home/u/subtitles"},
		},
		{
			name: "token accepted",
			req:  types.Request{URL: "u", UseToken: true, Token: "hf_abc"},
			want: []string{"--subs_mode", "auto", "--subs_dir", "/home/u/subtitles", "--pyannote_token", "hf_abc"},
		},
		{
			name: "accepted but empty token",
			req:  types.Request{URL: "u", UseToken: true},
			want: []string{"--subs_mode", "auto", "--subs_dir", "/home/u/subtitles"},
		},
		{
			name: "server options",
			opts: DesignOptions{ExplicitDirs: true, CropExpansion: 3, DisableSmartCrop: true, DisableSubtitles: true},
			req:  types.Request{},
			want: []string{
				"--input_dir", "/home/u/clips", "--output_dir", "/home/u/designed",
				"--crop_expansion", "3", "--disable_smart_crop", "--subs_mode", "off",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := Design{Opts: tt.opts}.Invocation(tt.req, l)
			if !reflect.DeepEqual(inv.Args, tt.want) {
				t.Fatalf("args = %v, want %v", inv.Args, tt.want)
			}
		})
	}
}

func TestEnv_TokenScopedToChildren(t *testing.T) {
	l := testLayout()
	declined := types.Request{URL: "u"}
	accepted := types.Request{URL: "u", UseToken: true, Token: "hf_abc"}

	for _, s := range Pipeline() {
		inv := s.Invocation(declined, l)
		for _, kv := range inv.Env {
			if strings.HasPrefix(kv, EnvToken+"=") {
				t.Fatalf("%s: token env present when declined", s.Name())
			}
		}
		if !containsEnv(inv.Unset, EnvToken) {
			t.Fatalf("%s: inherited token not scrubbed when declined", s.Name())
		}
		if !containsEnv(inv.Env, EnvMediaDir+"=/home/u") {
			t.Fatalf("%s: media dir not passed: %v", s.Name(), inv.Env)
		}

		inv = s.Invocation(accepted, l)
		if !containsEnv(inv.Env, EnvToken+"=hf_abc") {
			t.Fatalf("%s: token env missing: %v", s.Name(), inv.Env)
		}
	}
}

func TestPipeline_Order(t *testing.T) {
	var names []string
	for _, s := range Pipeline() {
		names = append(names, s.Name())
	}
	if strings.Join(names, ",") != "clips,subtitles,design" {
		t.Fatalf("unexpected order: %v", names)
	}
}

func containsEnv(env []string, kv string) bool {
	for _, e := range env {
		if e == kv {
			return true
		}
	}
	return false
}

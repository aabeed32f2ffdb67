package types

// Layout is the set of directories a run reads and writes.
type Layout struct {
	ProjectDir  string `json:"project_dir"`
	MediaDir    string `json:"media_dir"`
	VideosDir   string `json:"videos"`
	ClipsDir    string `json:"clips"`
	SubsDir     string `json:"subtitles"`
	DesignedDir string `json:"designed"`
}

// StageDirs returns the four stage directories in pipeline order.
func (l Layout) StageDirs() []string {
	return []string{l.VideosDir, l.ClipsDir, l.SubsDir, l.DesignedDir}
}

// Request is the user input for one run.
type Request struct {
	URL      string
	UseToken bool
	Token    string
}

// HasToken reports whether a diarization token should be passed downstream.
func (r Request) HasToken() bool {
	return r.UseToken && r.Token != ""
}

// Invocation describes one external program call.
type Invocation struct {
	Step    string
	Program string
	Args    []string
	Stdin   string
	Dir     string

	// Env holds KEY=VALUE entries added on top of the parent environment.
	// Unset names parent variables the child must not inherit.
	Env   []string
	Unset []string
}

type State int

const (
	StateResolvingPaths State = iota
	StateCollectingInput
	StatePreflighting
	StateRunningStep1
	StateRunningStep2
	StateRunningStep3
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateResolvingPaths:
		return "resolving-paths"
	case StateCollectingInput:
		return "collecting-input"
	case StatePreflighting:
		return "preflighting"
	case StateRunningStep1:
		return "running-step-1"
	case StateRunningStep2:
		return "running-step-2"
	case StateRunningStep3:
		return "running-step-3"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// RunningStep returns the state for the i-th step (0-based).
func RunningStep(i int) State {
	return StateRunningStep1 + State(i)
}

type FileInfo struct {
	Filename string  `json:"filename"`
	Path     string  `json:"path"`
	Size     int64   `json:"size"`
	SizeMB   float64 `json:"size_mb"`
	Modified string  `json:"modified"`

	// DurationSec is filled only when ffprobe can read the file.
	DurationSec float64 `json:"duration_sec,omitempty"`
}

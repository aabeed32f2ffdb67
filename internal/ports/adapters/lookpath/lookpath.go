package lookpath

import "os/exec"

// Adapter resolves executables on PATH.
type Adapter struct{}

func New() Adapter { return Adapter{} }

func (Adapter) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Package display hands condition images to whatever shows them.
package display

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sync"
)

// Viewer shows the image at path.
type Viewer interface {
	Show(ctx context.Context, path string) error
}

// System opens images with the platform's default application. It returns
// once the opener has started, not when the window closes. The viewer is
// detached from ctx and outlives the call.
type System struct {
	// Command overrides the opener; the path is appended as the last argument.
	Command []string
}

func (s System) command() (string, []string) {
	if len(s.Command) > 0 {
		return s.Command[0], append([]string(nil), s.Command[1:]...)
	}
	switch runtime.GOOS {
	case "windows":
		return "cmd", []string{"/c", "start", ""}
	case "darwin":
		return "open", nil
	default:
		return "xdg-open", nil
	}
}

func (s System) Show(ctx context.Context, path string) error {
	name, args := s.command()
	args = append(args, path)
	if err := ctx.Err(); err != nil {
		return err
	}
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s with %s: %w", path, name, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// Discard accepts every image without showing it.
type Discard struct{}

func (Discard) Show(context.Context, string) error { return nil }

// Recorder remembers the paths it was asked to show.
type Recorder struct {
	mu    sync.Mutex
	paths []string
	Err   error
}

func (r *Recorder) Show(ctx context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.paths = append(r.paths, path)
	return nil
}

// Shown returns the recorded paths in call order.
func (r *Recorder) Shown() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

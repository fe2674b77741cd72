package display

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
	"time"
)

func TestSystemCommandOverride(t *testing.T) {
	s := System{Command: []string{"viewer", "--fullscreen"}}
	name, args := s.command()
	if name != "viewer" || !reflect.DeepEqual(args, []string{"--fullscreen"}) {
		t.Fatalf("unexpected command %s %v", name, args)
	}
	// the override slice must not be mutated by appends
	args = append(args, "x.png")
	if len(s.Command) != 2 {
		t.Fatal("override mutated")
	}
}

func TestSystemShow_StartFailure(t *testing.T) {
	s := System{Command: []string{"/nonexistent/heartcrew-viewer"}}
	if err := s.Show(context.Background(), "img.png"); err == nil {
		t.Fatal("expected start error")
	}
}

func TestSystemShow_Starts(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no true(1) on windows")
	}
	s := System{Command: []string{"true"}}
	if err := s.Show(context.Background(), "img.png"); err != nil {
		t.Fatalf("show: %v", err)
	}
}

func TestSystemShow_OutlivesContext(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs sh")
	}
	marker := filepath.Join(t.TempDir(), "viewer-ran")
	s := System{Command: []string{"sh", "-c", `sleep 0.3; touch "$0"`}}

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Show(ctx, marker); err != nil {
		t.Fatalf("show: %v", err)
	}
	cancel()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(marker); err == nil {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("viewer stopped when the caller's context ended")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestSystemShow_CanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (System{Command: []string{"true"}}).Show(ctx, "img.png"); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	_ = r.Show(context.Background(), "a.png")
	_ = r.Show(context.Background(), "b.png")
	if !reflect.DeepEqual(r.Shown(), []string{"a.png", "b.png"}) {
		t.Fatalf("unexpected %v", r.Shown())
	}
	r.Err = errors.New("no display")
	if err := r.Show(context.Background(), "c.png"); err == nil {
		t.Fatal("expected configured error")
	}
	if len(r.Shown()) != 2 {
		t.Fatal("failed show should not be recorded")
	}
}

func TestDiscard(t *testing.T) {
	if err := (Discard{}).Show(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
}

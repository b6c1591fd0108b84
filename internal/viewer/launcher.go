// Package viewer opens downloaded media files in an external program.
package viewer

import (
	"errors"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrNoViewer is returned when no candidate viewer could be started
var ErrNoViewer = errors.New("no viewer found")

// Launcher opens local files in the configured viewer or the system default
type Launcher struct {
	command string
	args    []string
	logger  *slog.Logger

	// overridable in tests
	lookPath func(string) (string, error)
	start    func(name string, args ...string) error
}

// viewerConfig lists the commands to try for a viewer on each platform.
// An "open-a:" prefix launches a macOS app bundle.
type viewerConfig struct {
	videos    bool
	platforms map[string][]string
}

var viewers = map[string]viewerConfig{
	"mpv": {
		videos: true,
		platforms: map[string][]string{
			"darwin":  {"mpv"},
			"linux":   {"mpv"},
			"windows": {"mpv"},
		},
	},
	"iina": {
		videos:    true,
		platforms: map[string][]string{"darwin": {"open-a:IINA"}},
	},
	"imv": {
		platforms: map[string][]string{"linux": {"imv"}},
	},
	"feh": {
		platforms: map[string][]string{"linux": {"feh"}},
	},
	"vlc": {
		videos: true,
		platforms: map[string][]string{
			"darwin":  {"vlc", "open-a:VLC"},
			"linux":   {"vlc"},
			"windows": {"vlc"},
		},
	},
}

// candidateViewers is the detection order per platform
var candidateViewers = map[string][]string{
	"darwin":  {"iina", "mpv", "vlc"},
	"linux":   {"imv", "feh", "mpv", "vlc"},
	"windows": {"mpv", "vlc"},
}

// NewLauncher creates a Launcher. An empty command means auto-detect.
func NewLauncher(command string, args []string, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		command:  command,
		args:     args,
		logger:   logger,
		lookPath: exec.LookPath,
		start: func(name string, args ...string) error {
			return exec.Command(name, args...).Start()
		},
	}
}

// Open shows path in a viewer without waiting for it to exit
func (l *Launcher) Open(path string) error {
	if l.command != "" {
		l.logger.Info("using configured viewer", "command", l.command, "path", path)
		return l.launch(l.command, append(append([]string{}, l.args...), path))
	}

	if name, err := l.detect(path); err == nil {
		l.logger.Info("opened with detected viewer", "viewer", name, "path", path)
		return nil
	}

	l.logger.Info("no candidate viewer found, using system default", "os", runtime.GOOS)
	return l.openDefault(path)
}

// detect tries the platform's candidates in order. Image-only viewers are
// skipped for video files.
func (l *Launcher) detect(path string) (string, error) {
	candidates, ok := candidateViewers[runtime.GOOS]
	if !ok {
		candidates = candidateViewers["linux"]
	}

	video := IsVideo(path)
	for _, name := range candidates {
		cfg := viewers[name]
		if video && !cfg.videos {
			continue
		}
		for _, cmd := range cfg.platforms[runtime.GOOS] {
			err := l.launch(cmd, []string{path})
			if err == nil {
				return name, nil
			}
			l.logger.Debug("viewer not available", "viewer", name, "command", cmd, "error", err)
		}
	}
	return "", ErrNoViewer
}

func (l *Launcher) launch(cmd string, args []string) error {
	if app, ok := strings.CutPrefix(cmd, "open-a:"); ok {
		return l.start("open", append([]string{"-a", app}, args...)...)
	}
	if _, err := l.lookPath(cmd); err != nil {
		// GUI apps on macOS are often not on PATH
		if runtime.GOOS == "darwin" {
			return l.start("open", append([]string{"-a", cmd, "--args"}, args...)...)
		}
		return err
	}
	return l.start(cmd, args...)
}

func (l *Launcher) openDefault(path string) error {
	switch runtime.GOOS {
	case "darwin":
		return l.start("open", path)
	case "windows":
		return l.start("cmd", "/c", "start", "", path)
	default:
		return l.start("xdg-open", path)
	}
}

// IsVideo reports whether path names a video file by its extension
func IsVideo(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".webm", ".mp4", ".mkv", ".mov":
		return true
	}
	return false
}

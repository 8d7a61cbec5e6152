package audio

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

//go:generate moq -out mocks/command_runner.go -pkg mocks -skip-ensure -fmt goimports . CommandRunner

// CommandRunner provides OS-specific command creation for audio playback
type CommandRunner interface {
	GetAudioCommand(filename string) (*exec.Cmd, error)
}

// Player plays a finished episode locally, used by the CLI preview flag.
type Player struct {
	cmdRunner CommandRunner
}

// NewPlayer creates a new local audio player
func NewPlayer() *Player {
	return &Player{cmdRunner: &DefaultCommandRunner{}}
}

// Play plays an audio file using the system's default audio player
func (p *Player) Play(filename string) error {
	// check if file exists before attempting to play
	if _, err := os.Stat(filename); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("audio file does not exist: %s", filename)
		}
		return fmt.Errorf("failed to check audio file: %w", err)
	}

	cmd, err := p.cmdRunner.GetAudioCommand(filename)
	if err != nil {
		return fmt.Errorf("failed to get audio command: %w", err)
	}

	// run the command and wait for it to finish
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("error playing audio: %w", err)
	}

	return nil
}

// DefaultCommandRunner is the default implementation of CommandRunner
type DefaultCommandRunner struct{}

// GetAudioCommand returns the appropriate audio command for the current OS
func (r *DefaultCommandRunner) GetAudioCommand(filename string) (*exec.Cmd, error) {
	// validate filename to prevent potential security issues
	if strings.Contains(filename, "..") || strings.ContainsAny(filename, ";|&$`") {
		return nil, fmt.Errorf("invalid filename: potential security risk")
	}

	switch runtime.GOOS {
	case "darwin": // macOS
		return exec.Command("afplay", filename), nil
	case "windows":
		return exec.Command("cmd", "/C", "start", filename), nil
	case "linux":
		// try several common audio players
		players := []string{"mpv", "mplayer", "ffplay", "aplay"}
		for _, player := range players {
			if _, err := exec.LookPath(player); err == nil {
				if player == "aplay" {
					// #nosec G204 -- Player is selected from a whitelist of known audio players
					return exec.Command(player, "-q", filename), nil
				}
				// #nosec G204 -- Player is selected from a whitelist of known audio players
				// note: options must come before filename for mpv/mplayer/ffplay
				return exec.Command(player, "-nodisp", "-autoexit", "-really-quiet", filename), nil
			}
		}
		return nil, fmt.Errorf("no suitable audio player found on your system")
	default:
		return nil, fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

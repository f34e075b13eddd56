package game

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RunLog records statistics gathered during one run.
type RunLog struct {
	Session    string        `json:"session"`
	Started    time.Time     `json:"started"`
	Duration   time.Duration `json:"duration_ns"`
	Ticks      uint64        `json:"ticks"`
	LiftTicks  uint64        `json:"lift_ticks"`
	Resets     int           `json:"resets"`
	DrawErrors int           `json:"draw_errors"`
	Digest     string        `json:"digest"`
}

// saveRunLog appends the completed run as a single JSON line to runs.jsonl.
func saveRunLog(log RunLog) error {
	dir, err := runLogDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("run log dir: %w", err)
	}
	data, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("encode run log: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "runs.jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open run log: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("write run log: %w", err)
	}
	return f.Close()
}

// runLogDir returns the directory where run logs are stored:
// $XDG_DATA_HOME/fly, defaulting to ~/.local/share/fly.
func runLogDir() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "fly"), nil
}

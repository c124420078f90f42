// Package play invokes the user's configured media player on a local
// file or a stream URL.
package play

import (
	"errors"
	"os/exec"
	"strings"
)

// Execute runs the configured play command against target (a file path
// or URL). A %s placeholder in the command is replaced with the target;
// without one, the target is appended as the final argument. The child
// process is started and released so playback never blocks the caller.
func Execute(command, target string) error {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return errors.New("play command is empty")
	}

	args := make([]string, 0, len(fields)+1)
	substituted := false
	for _, f := range fields {
		if strings.Contains(f, "%s") {
			f = strings.ReplaceAll(f, "%s", target)
			substituted = true
		}
		args = append(args, f)
	}
	if !substituted {
		args = append(args, target)
	}

	cmd := exec.Command(args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

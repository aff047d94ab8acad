package audio

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"
)

// ListInputDevices enumerates capture sources for the given grab format by
// parsing `ffmpeg -sources`. The list is diagnostic only; failures return
// an empty list rather than an error because device startup already
// surfaces the fatal condition.
func ListInputDevices(ctx context.Context, command string, inputFormat string) []string {
	if command == "" {
		command = "ffmpeg"
	}
	if inputFormat == "" {
		inputFormat = DefaultInputFormat()
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, command, "-hide_banner", "-sources", inputFormat)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	// ffmpeg exits non-zero for unknown formats; the output is still the
	// only signal worth surfacing.
	_ = cmd.Run()

	return parseSources(out.String())
}

func parseSources(output string) []string {
	var devices []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Auto-detected sources") {
			continue
		}
		line = strings.TrimPrefix(line, "* ")
		if strings.HasPrefix(line, "Cannot list sources") {
			continue
		}
		devices = append(devices, line)
	}
	return devices
}

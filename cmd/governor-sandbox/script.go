package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// segment is a run of frames at a constant rate
type segment struct {
	FPS    float64
	Frames int
}

// Delta is the frame time of the segment
func (s segment) Delta() time.Duration {
	return time.Duration(float64(time.Second) / s.FPS)
}

// parseScript reads "fps x frames" pairs separated by commas, e.g. "60x120,25x240"
func parseScript(script string) ([]segment, error) {
	var segs []segment
	for i, part := range strings.Split(script, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fpsText, framesText, ok := strings.Cut(part, "x")
		if !ok {
			return nil, fmt.Errorf("segment %d %q: want <fps>x<frames>", i+1, part)
		}
		fps, err := strconv.ParseFloat(strings.TrimSpace(fpsText), 64)
		if err != nil || fps <= 0 {
			return nil, fmt.Errorf("segment %d %q: invalid fps", i+1, part)
		}
		frames, err := strconv.Atoi(strings.TrimSpace(framesText))
		if err != nil || frames <= 0 {
			return nil, fmt.Errorf("segment %d %q: invalid frame count", i+1, part)
		}
		segs = append(segs, segment{FPS: fps, Frames: frames})
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("empty script")
	}
	return segs, nil
}

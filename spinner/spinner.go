// Package spinner renders a small terminal spinner for long waits
// like walking a creator's post feed.
package spinner

import (
	"fmt"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/KJHJason/Kemono-Harvester-CLI/utils"
)

var (
	dotFrames  = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	lineFrames = []string{"-", "\\", "|", "/"}

	frameSets = map[string][]string{
		"dots": dotFrames,
		"line": lineFrames,
	}
	colourMap = map[string]color.Attribute{
		"red":     color.FgRed,
		"green":   color.FgGreen,
		"yellow":  color.FgYellow,
		"blue":    color.FgBlue,
		"magenta": color.FgMagenta,
		"cyan":    color.FgCyan,
		"white":   color.FgWhite,
	}
)

const frameInterval = 80 * time.Millisecond

type Spinner struct {
	Colour     *color.Color
	Msg        string
	SuccessMsg string
	ErrMsg     string

	frames []string
	mu     sync.Mutex
	active bool
	stop   chan struct{}
	done   chan struct{}
}

func New(spinnerType, colour, message string) *Spinner {
	frames, ok := frameSets[spinnerType]
	if !ok {
		panic(
			fmt.Errorf(
				"error %d: spinner type %s not found",
				utils.DEV_ERROR,
				spinnerType,
			),
		)
	}
	colourAttribute, ok := colourMap[colour]
	if !ok {
		panic(
			fmt.Errorf(
				"error %d: colour %s not found",
				utils.DEV_ERROR,
				colour,
			),
		)
	}
	return &Spinner{
		Colour: color.New(colourAttribute),
		Msg:    message,
		frames: frames,
	}
}

// UpdateMsg changes the spinner text while it is running.
func (s *Spinner) UpdateMsg(msg string) {
	s.mu.Lock()
	s.Msg = msg
	s.mu.Unlock()
}

func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	s.active = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(frameInterval)
		defer ticker.Stop()
		frameIdx := 0
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.mu.Lock()
				msg := s.Msg
				s.mu.Unlock()
				s.Colour.Printf("\r%s %s", s.frames[frameIdx], msg)
				frameIdx = (frameIdx + 1) % len(s.frames)
			}
		}
	}()
}

// Stop halts the spinner and prints the outcome message.
func (s *Spinner) Stop(hasErr bool) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	close(s.stop)
	s.mu.Unlock()
	<-s.done

	fmt.Print("\r\033[K")
	if hasErr {
		if s.ErrMsg != "" {
			color.Red("✗ %s", s.ErrMsg)
		}
	} else if s.SuccessMsg != "" {
		color.Green("✓ %s", s.SuccessMsg)
	}
}

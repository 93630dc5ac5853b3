package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// Spinner displays an animated spinner with a message.
type Spinner struct {
	message string
	frames  []string
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	current int
}

// Default spinner frames (dots style)
var defaultFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// NewSpinner creates a new spinner with the given message.
func NewSpinner(message string) *Spinner {
	return &Spinner{
		message: message,
		frames:  defaultFrames,
		done:    make(chan struct{}),
	}
}

// Start begins the spinner animation.
func (s *Spinner) Start() {
	// Only animate if we're in a TTY
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Println(Muted.Render(s.message + "..."))
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-s.done:
				// Clear the spinner line
				fmt.Print("\r\033[K")
				return
			case <-ticker.C:
				s.mu.Lock()
				frame := s.frames[s.current%len(s.frames)]
				s.current++
				s.mu.Unlock()
				fmt.Printf("\r%s %s", Bold.Render(frame), s.message)
			}
		}
	}()
}

// Stop stops the spinner and optionally shows a final message.
func (s *Spinner) Stop() {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return
	}
	close(s.done)
	s.wg.Wait()
}

// ProgressBar renders reindex progress on one line.
type ProgressBar struct {
	out     io.Writer
	display *DisplayContext
	mu      sync.Mutex
	drawn   bool
}

// NewProgressBar creates a progress bar writing to stdout.
func NewProgressBar() *ProgressBar {
	return &ProgressBar{out: os.Stdout, display: NewDisplayContext()}
}

// Render formats a bar for fraction (0..1) followed by label, fitted to the
// terminal width.
func (p *ProgressBar) Render(fraction float64, label string) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	const minBar, maxBar = 10, 40
	percent := fmt.Sprintf("%3d%%", int(fraction*100+0.5))

	barWidth := p.display.AvailableWidth(len(percent)+len(label)+4) - 2
	if barWidth > maxBar {
		barWidth = maxBar
	}
	if barWidth < minBar {
		barWidth = minBar
	}
	filled := int(fraction * float64(barWidth))
	bar := strings.Repeat("█", filled) + Muted.Render(strings.Repeat("░", barWidth-filled))
	return fmt.Sprintf("[%s] %s %s", bar, percent, Muted.Render(label))
}

// Update redraws the bar. Nothing is drawn when stdout is not a terminal.
func (p *ProgressBar) Update(fraction float64, label string) {
	if !p.display.IsTTY {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "\r\033[K%s", p.Render(fraction, label))
	p.drawn = true
}

// Done clears the bar line.
func (p *ProgressBar) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drawn {
		fmt.Fprint(p.out, "\r\033[K")
		p.drawn = false
	}
}

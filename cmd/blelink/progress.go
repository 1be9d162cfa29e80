package main

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

const (
	progressUpdateInterval = 100 * time.Millisecond
	clearLineSequence      = "\r\033[K"
)

// ProgressPrinter shows "<prefix> (<phase> Ns)" on a single terminal line,
// counting up, or down when a duration is set. It prints nothing when out is
// not a terminal.
//
// A ProgressPrinter is single-use: Start once, Stop any number of times.
type ProgressPrinter struct {
	out      io.Writer
	prefix   string
	duration time.Duration

	mu      sync.Mutex
	phase   string
	start   time.Time
	stop    chan struct{}
	done    chan struct{}
	stopped bool
}

// NewProgressPrinter creates a printer that shows elapsed time.
func NewProgressPrinter(out io.Writer, prefix, phase string) *ProgressPrinter {
	return &ProgressPrinter{out: out, prefix: prefix, phase: phase}
}

// NewCountdownProgressPrinter creates a printer that shows the time left of d.
func NewCountdownProgressPrinter(out io.Writer, prefix, phase string, d time.Duration) *ProgressPrinter {
	return &ProgressPrinter{out: out, prefix: prefix, phase: phase, duration: d}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Start begins the display goroutine.
func (p *ProgressPrinter) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stop != nil || p.stopped || !isTerminal(p.out) {
		return
	}
	p.start = time.Now()
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	fmt.Fprintf(p.out, "\r%s (%s...)   ", p.prefix, p.phase)

	go p.loop(p.stop, p.done)
}

func (p *ProgressPrinter) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(progressUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.mu.Lock()
			phase := p.phase
			seconds := p.seconds()
			p.mu.Unlock()

			if seconds > 0 {
				fmt.Fprintf(p.out, "\r%s (%s %ds)   ", p.prefix, phase, seconds)
			} else {
				fmt.Fprintf(p.out, "\r%s (%s...)   ", p.prefix, phase)
			}
		}
	}
}

func (p *ProgressPrinter) seconds() int {
	elapsed := time.Since(p.start)
	if p.duration == 0 {
		return int(elapsed.Seconds())
	}
	remaining := p.duration - elapsed
	if remaining <= 0 {
		return 0
	}
	// nearest second
	return int(remaining.Seconds() + 0.5)
}

// SetPhase changes the phase shown after the prefix.
func (p *ProgressPrinter) SetPhase(phase string) {
	p.mu.Lock()
	p.phase = phase
	p.mu.Unlock()
}

// Stop ends the display and clears the line.
func (p *ProgressPrinter) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	stop, done := p.stop, p.done
	p.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
	fmt.Fprint(p.out, clearLineSequence)
}

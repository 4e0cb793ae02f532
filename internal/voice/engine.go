package voice

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
)

// Engine is a continuous speech recognizer. Start opens a session whose
// channel yields final phrases and is closed when the session ends, either on
// its own or because ctx was cancelled.
type Engine interface {
	Start(ctx context.Context) (<-chan string, error)
}

// ReaderEngine treats each non-blank line of a reader as a recognized phrase.
// Lines not delivered by one session are kept for the next. Once the reader is
// exhausted Start returns ErrEngineUnavailable.
type ReaderEngine struct {
	r io.Reader

	once  sync.Once
	lines chan string

	mu        sync.Mutex
	running   bool
	exhausted bool
	held      []string
}

var _ Engine = (*ReaderEngine)(nil)

// NewReaderEngine reads phrases from r.
func NewReaderEngine(r io.Reader) *ReaderEngine {
	return &ReaderEngine{r: r, lines: make(chan string)}
}

func (e *ReaderEngine) pump() {
	defer close(e.lines)
	sc := bufio.NewScanner(e.r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			e.lines <- line
		}
	}
}

// Start implements Engine.
func (e *ReaderEngine) Start(ctx context.Context) (<-chan string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return nil, ErrEngineBusy
	}
	if e.exhausted && len(e.held) == 0 {
		return nil, ErrEngineUnavailable
	}
	e.once.Do(func() { go e.pump() })
	e.running = true

	out := make(chan string)
	go e.session(ctx, out)
	return out, nil
}

func (e *ReaderEngine) session(ctx context.Context, out chan<- string) {
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		close(out)
	}()
	for {
		line, ok := e.next(ctx)
		if !ok {
			return
		}
		select {
		case out <- line:
		case <-ctx.Done():
			e.hold(line)
			return
		}
	}
}

func (e *ReaderEngine) next(ctx context.Context) (string, bool) {
	e.mu.Lock()
	if len(e.held) > 0 {
		line := e.held[0]
		e.held = e.held[1:]
		e.mu.Unlock()
		return line, true
	}
	exhausted := e.exhausted
	e.mu.Unlock()
	if exhausted {
		return "", false
	}

	select {
	case line, ok := <-e.lines:
		if !ok {
			e.mu.Lock()
			e.exhausted = true
			e.mu.Unlock()
			return "", false
		}
		return line, true
	case <-ctx.Done():
		return "", false
	}
}

func (e *ReaderEngine) hold(line string) {
	e.mu.Lock()
	e.held = append([]string{line}, e.held...)
	e.mu.Unlock()
}

package voice

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/overlay/internal/adapters/mq/queue"
	"github.com/okian/overlay/internal/adapters/mq/worker"
	"github.com/okian/overlay/pkg/clock"
	"github.com/okian/overlay/pkg/logger"
	"github.com/okian/overlay/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

const (
	defaultRestartDelay = 300 * time.Millisecond
	defaultQueueSize    = 16
)

// Trigger publishes a celebration. It reports false when the request was
// ignored because an earlier one is still in flight.
type Trigger interface {
	TriggerEffect(ctx context.Context, name string) (bool, error)
}

// Listener keeps a speech engine running while listening is wanted and turns
// matching phrases into effect triggers.
type Listener struct {
	engine      Engine
	trigger     Trigger
	interpreter *Interpreter

	restartDelay time.Duration
	queueSize    int
	clock        clock.Clock
	log          logger.Logger

	// pending is set while a trigger is in flight; matches arriving then are
	// dropped.
	pending  atomic.Bool
	triggers sync.WaitGroup
}

// NewListener creates a listener.
func NewListener(engine Engine, trigger Trigger, opts ...Option) *Listener {
	l := &Listener{
		engine:       engine,
		trigger:      trigger,
		interpreter:  NewInterpreter(),
		restartDelay: defaultRestartDelay,
		queueSize:    defaultQueueSize,
		clock:        clock.Real(),
		log:          logger.Named("voice"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Handle implements worker.Handler. A matched phrase fires its trigger in the
// background; matches handled while that trigger is in flight are ignored.
func (l *Listener) Handle(ctx context.Context, p queue.Phrase) error {
	effect, ok := l.interpreter.Match(p.Text)
	if !ok {
		metrics.RecordVoicePhrase("unmatched")
		l.log.Debug(ctx, "phrase ignored", logger.String("phrase", p.Text))
		return nil
	}
	if !l.pending.CompareAndSwap(false, true) {
		metrics.RecordVoicePhrase("ignored")
		l.log.Debug(ctx, "trigger in flight, phrase dropped",
			logger.String("phrase", p.Text), logger.String("effect", effect))
		return nil
	}

	// The trigger outlives a cancelled session; Run waits for it.
	tctx := context.WithoutCancel(ctx)
	l.triggers.Add(1)
	go func() {
		defer l.triggers.Done()
		defer l.pending.Store(false)
		l.fire(tctx, p.Text, effect)
	}()
	return nil
}

func (l *Listener) fire(ctx context.Context, phrase, effect string) {
	sent, err := l.trigger.TriggerEffect(ctx, effect)
	switch {
	case err != nil:
		metrics.RecordVoicePhrase("error")
		l.log.Warn(ctx, "trigger failed", logger.String("effect", effect), logger.Error(err))
	case !sent:
		metrics.RecordVoicePhrase("ignored")
	default:
		metrics.RecordVoicePhrase("matched")
		l.log.Info(ctx, "phrase matched", logger.String("phrase", phrase), logger.String("effect", effect))
	}
}

// Wait blocks until triggers started by Handle have finished.
func (l *Listener) Wait() {
	l.triggers.Wait()
}

// Run follows the listening intent until ctx is done or intent is closed.
// listening is the intent in effect before the first value arrives.
func (l *Listener) Run(ctx context.Context, intent <-chan bool, listening bool) error {
	q := queue.NewInMemoryQueue(queue.WithCapacity(l.queueSize))
	w := worker.NewInMemoryWorker(q, l, worker.WithName("voice"), worker.WithLogger(l.log))

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w.Run(gctx)
		return nil
	})
	g.Go(func() error {
		defer cancel()
		defer q.Close()
		l.loop(gctx, intent, listening, q)
		return nil
	})
	err := g.Wait()
	l.Wait()
	return err
}

type session struct {
	phrases <-chan string
	cancel  context.CancelFunc
}

func (l *Listener) loop(ctx context.Context, intent <-chan bool, listening bool, q queue.Queue) {
	var (
		cur     *session
		timer   clock.Timer
		restart = make(chan struct{}, 1)
	)

	stop := func() {
		if cur != nil {
			cur.cancel()
			cur = nil
		}
		if timer != nil {
			timer.Stop()
			timer = nil
		}
		select {
		case <-restart:
		default:
		}
	}
	start := func() {
		sctx, scancel := context.WithCancel(ctx)
		ch, err := l.engine.Start(sctx)
		if err != nil {
			scancel()
			l.log.Warn(ctx, "speech engine did not start", logger.Error(err))
			if !errors.Is(err, ErrEngineUnavailable) {
				timer = l.schedule(restart)
			}
			return
		}
		cur = &session{phrases: ch, cancel: scancel}
		l.log.Info(ctx, "listening")
	}
	defer stop()

	if listening {
		start()
	}
	var phrases <-chan string
	for {
		phrases = nil
		if cur != nil {
			phrases = cur.phrases
		}
		select {
		case <-ctx.Done():
			return

		case on, ok := <-intent:
			if !ok {
				return
			}
			if on == listening {
				continue
			}
			listening = on
			stop()
			if on {
				start()
			} else {
				l.log.Info(ctx, "stopped listening")
			}

		case text, ok := <-phrases:
			if !ok {
				cur.cancel()
				cur = nil
				if listening {
					metrics.RecordVoiceRestart()
					timer = l.schedule(restart)
				}
				continue
			}
			if !q.Enqueue(ctx, queue.NewPhrase(text, l.clock.Now())) {
				l.log.Warn(ctx, "phrase dropped", logger.String("phrase", text))
			}

		case <-restart:
			timer = nil
			if listening && cur == nil {
				start()
			}
		}
	}
}

func (l *Listener) schedule(restart chan<- struct{}) clock.Timer {
	return l.clock.AfterFunc(l.restartDelay, func() {
		select {
		case restart <- struct{}{}:
		default:
		}
	})
}

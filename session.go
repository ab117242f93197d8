package rtqueue

import (
	"context"
	"math"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/pbnjay/memory"
	"github.com/pkg/errors"

	"github.com/timzifer/rtqueue/internal/core"
	"github.com/timzifer/rtqueue/internal/pool"
	"github.com/timzifer/rtqueue/internal/registry"
	"github.com/timzifer/rtqueue/internal/syncobj"
	"github.com/timzifer/rtqueue/internal/telemetry"
)

// Session owns a namespace of queues. Queues created in one session are
// only visible to Bind calls on the same session.
type Session struct {
	opts     Options
	log      *logiface.Logger[logiface.Event]
	registry *registry.Cluster[*qcb]
	builds   telemetry.BuildMetrics
	seq      atomic.Uint64
}

// NewSession returns an empty session.
func NewSession(opts ...Option) *Session {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.ClockResolution <= 0 {
		o.ClockResolution = time.Nanosecond
	}
	return &Session{
		opts:     o,
		log:      o.Logger,
		registry: registry.New[*qcb](),
	}
}

// Create builds a queue backed by a pool sized from poolSize and limit and
// registers it under name. An empty name is replaced by a generated one.
func (s *Session) Create(ctx context.Context, name string, poolSize, limit int, mode Mode) (*Queue, error) {
	if isAsync(ctx) {
		return nil, ErrPermission
	}
	if poolSize <= 0 || limit < 0 || mode&^Prio != 0 {
		return nil, ErrInvalidArgument
	}

	q := &qcb{
		magic:   qcbMagic,
		name:    s.queueName(name),
		mode:    mode,
		limit:   limit,
		session: s,
	}
	order := syncobj.FIFO
	if mode&Prio != 0 {
		order = syncobj.Priority
	}
	q.sobj = syncobj.New[*waitDesc](order)

	reserve := core.StageFunc(func(context.Context) (func(), func(), error) {
		p, err := s.reservePool(q.name, poolSize, limit)
		if err != nil {
			return nil, nil, err
		}
		q.pool = p
		return nil, p.Destroy, nil
	})
	register := core.StageFunc(func(context.Context) (func(), func(), error) {
		if err := s.registry.Add(q.name, q); err != nil {
			return nil, nil, errors.Wrapf(translate(err), "queue %q", q.name)
		}
		return nil, func() {
			s.registry.Remove(q.name)
			q.mu.Lock()
			q.magic = 0
			q.mu.Unlock()
		}, nil
	})

	ctx = core.WithObserver(ctx, func(err error) {
		if err != nil {
			s.log.Warning().
				Str("queue", q.name).
				Err(err).
				Log("queue creation rolled back")
			return
		}
		s.log.Debug().
			Str("queue", q.name).
			Str("mode", mode.String()).
			Int("limit", limit).
			Int("pool", q.pool.Size()).
			Log("queue created")
	})
	if err := core.NewOrchestrator(&s.builds, reserve, register).Run(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				return nil, ErrTimedOut
			}
			return nil, ErrInterrupted
		}
		return nil, err
	}

	h := &Queue{}
	h.q.Store(q)
	return h, nil
}

// Bind returns a handle on the queue registered under name, waiting for it
// to be created unless timeout is negative.
func (s *Session) Bind(ctx context.Context, name string, timeout time.Duration) (*Queue, error) {
	task, _ := TaskFromContext(ctx)
	if timeout >= 0 && task == nil {
		return nil, ErrPermission
	}

	var interrupt <-chan struct{}
	if timeout >= 0 {
		interrupt = task.arm()
		defer task.disarm()
	}

	q, err := s.registry.Wait(ctx, truncateName(name), s.deadline(timeout), timeout < 0, interrupt)
	if err != nil {
		return nil, translate(err)
	}
	h := &Queue{}
	h.q.Store(q)
	return h, nil
}

// Names returns the names of all registered queues in sorted order.
func (s *Session) Names() []string { return s.registry.Names() }

// BuildStats reports how many queue creations were attempted and failed,
// and their average duration.
func (s *Session) BuildStats() (attempts, failures uint64, average time.Duration) {
	return s.builds.Snapshot()
}

// Close deletes every queue still registered in the session.
func (s *Session) Close(ctx context.Context) error {
	if isAsync(ctx) {
		return ErrPermission
	}
	var first error
	for _, name := range s.registry.Names() {
		q, ok := s.registry.Lookup(name)
		if !ok {
			continue
		}
		h := &Queue{}
		h.q.Store(q)
		if err := h.Delete(ctx); err != nil && !errors.Is(err, ErrStaleHandle) && first == nil {
			first = err
		}
	}
	return first
}

// reservePool sizes the pool of a new queue. Unlimited queues get a heap
// with 5% slack; bounded queues get limit fixed blocks.
func (s *Session) reservePool(name string, poolSize, limit int) (*pool.Pool, error) {
	var size, block int
	if limit == Unlimited {
		if poolSize > math.MaxInt-poolSize/20-pool.Alignment {
			return nil, errors.Wrapf(ErrNoMemory, "pool of %d bytes", poolSize)
		}
		size = poolSize + poolSize/20
		size = (size + pool.Alignment - 1) / pool.Alignment * pool.Alignment
	} else {
		per := poolSize / limit
		if per == 0 {
			return nil, errors.Wrapf(ErrInvalidArgument, "pool of %d bytes cannot hold %d messages", poolSize, limit)
		}
		if per > math.MaxInt/EnvelopeSize/limit {
			return nil, errors.Wrapf(ErrNoMemory, "%d blocks of %d envelopes", limit, per)
		}
		block = per * EnvelopeSize
		size = block * limit
	}

	if s.opts.MaxPoolBytes > 0 && size > s.opts.MaxPoolBytes {
		return nil, errors.Wrapf(ErrNoMemory, "pool of %d bytes exceeds the %d byte cap", size, s.opts.MaxPoolBytes)
	}
	if total := memory.TotalMemory(); total > 0 && uint64(size) > total {
		return nil, errors.Wrapf(ErrNoMemory, "pool of %d bytes exceeds physical memory", size)
	}

	var (
		p   *pool.Pool
		err error
	)
	if block > 0 {
		p, err = pool.NewArray(name, block, limit)
	} else {
		p, err = pool.New(name, size)
	}
	if err != nil {
		return nil, errors.Wrapf(translate(err), "queue %q", name)
	}
	return p, nil
}

// deadline converts a relative timeout into an absolute one. Infinite
// and NonBlock yield the zero time.
func (s *Session) deadline(timeout time.Duration) time.Time {
	if timeout <= 0 {
		return time.Time{}
	}
	res := s.opts.ClockResolution
	if rem := timeout % res; rem != 0 && timeout <= math.MaxInt64-(res-rem) {
		timeout += res - rem
	}
	return time.Now().Add(timeout)
}

func (s *Session) queueName(name string) string {
	if name == "" {
		return "queue@" + strconv.FormatUint(s.seq.Add(1), 10)
	}
	return truncateName(name)
}

func truncateName(name string) string {
	if len(name) >= MaxNameLen {
		return name[:MaxNameLen-1]
	}
	return name
}

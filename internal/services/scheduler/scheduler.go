package scheduler

import (
	"context"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "quizbot/pkg/logx"
)

// Config controls the scheduler service.
type Config struct {
	Workers  int
	Timezone string // IANA TZ, e.g. "Asia/Jakarta"
}

type task struct {
	name string
	run  func(ctx context.Context) error
}

type cronDef struct {
	name    string
	spec    string
	job     func(ctx context.Context) error
	entryID cron.EntryID

	mu      sync.Mutex
	running bool
}

type onceTimer struct {
	timer *time.Timer
	ver   uint64
}

type Service struct {
	mu sync.Mutex

	log logx.Logger
	cfg Config
	loc *time.Location

	parser cron.Parser
	c      *cron.Cron
	defs   []*cronDef

	queue    chan task
	runCtx   context.Context
	runStop  context.CancelFunc
	workerWG sync.WaitGroup
	started  bool

	// named one-shot timers
	tmu     sync.Mutex
	timers  map[string]*onceTimer
	onceVer uint64
}

func New(cfg Config, log logx.Logger) *Service {
	return &Service{
		cfg: cfg,
		log: log,
		// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		timers: map[string]*onceTimer{},
	}
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.runCtx, s.runStop = context.WithCancel(ctx)

	workers := s.cfg.Workers
	if workers <= 0 {
		workers = 2
	}
	// Fresh queue per run so stale tasks can't execute after a stop/start toggle.
	s.queue = make(chan task, 256)

	loc := s.loadLocationLocked()
	s.loc = loc
	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))

	// re-register existing defs (if any)
	for _, d := range s.defs {
		s.registerCronLocked(d)
	}
	s.c.Start()

	runCtx := s.runCtx
	queue := s.queue
	for i := 0; i < workers; i++ {
		s.workerWG.Add(1)
		go s.worker(runCtx, queue, i)
	}
	s.log.Debug("scheduler started", logx.Int("workers", workers), logx.String("tz", strings.TrimSpace(s.cfg.Timezone)))
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	c := s.c
	s.c = nil
	stop := s.runStop
	s.mu.Unlock()

	if c != nil {
		c.Stop()
	}

	s.tmu.Lock()
	for name, t := range s.timers {
		t.timer.Stop()
		delete(s.timers, name)
	}
	s.tmu.Unlock()

	if stop != nil {
		stop()
	}

	done := make(chan struct{})
	go func() {
		s.workerWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out waiting for workers")
	}
}

func (s *Service) worker(ctx context.Context, queue <-chan task, idx int) {
	defer s.workerWG.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-queue:
			if !ok {
				return
			}
			s.runTask(ctx, t, idx)
		}
	}
}

func (s *Service) runTask(ctx context.Context, t task, idx int) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("scheduled task panicked",
				logx.String("task", t.name),
				logx.Int("worker", idx),
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())))
		}
	}()

	if err := t.run(ctx); err != nil && ctx.Err() == nil {
		s.log.Warn("scheduled task failed", logx.String("task", t.name), logx.Err(err))
	}
	s.log.Trace("scheduled task done", logx.String("task", t.name), logx.Duration("took", time.Since(started)))
}

func (s *Service) enqueue(t task) {
	s.mu.Lock()
	queue := s.queue
	started := s.started
	s.mu.Unlock()
	if !started || queue == nil {
		return
	}
	select {
	case queue <- t:
	default:
		s.log.Warn("scheduler queue full; dropping task", logx.String("task", t.name))
	}
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid scheduler timezone; using local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}

func (s *Service) registerCronLocked(d *cronDef) {
	if s.c == nil {
		return
	}
	id, err := s.c.AddFunc(d.spec, func() {
		// skip-if-running: cron jobs must not overlap themselves
		d.mu.Lock()
		if d.running {
			d.mu.Unlock()
			s.log.Debug("cron run skipped (still running)", logx.String("task", d.name))
			return
		}
		d.running = true
		d.mu.Unlock()

		s.enqueue(task{name: d.name, run: func(ctx context.Context) error {
			defer func() {
				d.mu.Lock()
				d.running = false
				d.mu.Unlock()
			}()
			return d.job(ctx)
		}})
	})
	if err != nil {
		s.log.Warn("cron registration failed", logx.String("task", d.name), logx.String("spec", d.spec), logx.Err(err))
		return
	}
	d.entryID = id
}

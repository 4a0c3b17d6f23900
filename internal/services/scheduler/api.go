package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	logx "quizbot/pkg/logx"
)

// AddOnce schedules job to run once after the given delay. A previous timer
// with the same name is replaced. The job runs on the worker pool.
func (s *Service) AddOnce(name string, after time.Duration, job func(ctx context.Context) error) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("scheduler: timer name is required")
	}
	if job == nil {
		return fmt.Errorf("scheduler: job is required")
	}
	if after < 0 {
		after = 0
	}

	s.tmu.Lock()
	if prev, ok := s.timers[name]; ok {
		prev.timer.Stop()
		delete(s.timers, name)
	}
	s.onceVer++
	ver := s.onceVer
	ot := &onceTimer{ver: ver}
	ot.timer = time.AfterFunc(after, func() {
		// A replaced or removed timer must not fire its job even if the
		// underlying time.Timer already expired.
		s.tmu.Lock()
		cur, ok := s.timers[name]
		if !ok || cur.ver != ver {
			s.tmu.Unlock()
			return
		}
		delete(s.timers, name)
		s.tmu.Unlock()

		s.enqueue(task{name: name, run: job})
	})
	s.timers[name] = ot
	s.tmu.Unlock()

	s.log.Trace("one-shot scheduled", logx.String("task", name), logx.Duration("after", after))
	return nil
}

// Remove cancels a pending one-shot timer. It reports whether a timer was
// actually pending. Removing an already-fired or unknown name is a no-op.
func (s *Service) Remove(name string) bool {
	s.tmu.Lock()
	defer s.tmu.Unlock()
	ot, ok := s.timers[name]
	if !ok {
		return false
	}
	ot.timer.Stop()
	delete(s.timers, name)
	return true
}

// AddCron registers a recurring job from a cron spec (5 or 6 field, or
// descriptors like "@daily"). The spec is validated immediately; the job is
// registered with the running cron instance, or kept for the next Start.
func (s *Service) AddCron(name, spec string, job func(ctx context.Context) error) error {
	name = strings.TrimSpace(name)
	spec = strings.TrimSpace(spec)
	if name == "" || spec == "" {
		return fmt.Errorf("scheduler: cron name and spec are required")
	}
	if job == nil {
		return fmt.Errorf("scheduler: job is required")
	}
	if _, err := s.parser.Parse(spec); err != nil {
		return fmt.Errorf("scheduler: invalid cron spec %q: %w", spec, err)
	}

	d := &cronDef{name: name, spec: spec, job: job}

	s.mu.Lock()
	s.defs = append(s.defs, d)
	if s.started {
		s.registerCronLocked(d)
	}
	s.mu.Unlock()

	s.log.Debug("cron registered", logx.String("task", name), logx.String("spec", spec))
	return nil
}

// Package app wires the process together: config, logging, the Telegram
// gateway, the scheduler, storage, the competition engine, and the command
// dispatcher.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"quizbot/internal/bot"
	"quizbot/internal/competition"
	"quizbot/internal/config"
	rtsup "quizbot/internal/runtime/supervisor"
	"quizbot/internal/services/scheduler"
	"quizbot/internal/storage"
	kit "quizbot/internal/transport"
	"quizbot/internal/transport/telegram"
	logx "quizbot/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *rtsup.Supervisor

	log  logx.Logger
	logs *logx.Service

	adapter *telegram.Adapter
	sched   *scheduler.Service
	store   storage.Store
	engine  *competition.Engine
	disp    *bot.Dispatcher

	updates chan kit.Update
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	bootLog := logx.NewConsole(cfg.Logging.Level).With(logx.String("comp", "telegram"))

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, bootLog)
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logxConfig(cfg), ad)
	log = log.With(logx.String("comp", "app"))

	if chatID := parseGroupLog(cfg.Telegram.GroupLog); chatID != 0 {
		logSvc.SetTelegramTarget(chatID, cfg.Logging.Telegram.ThreadID)
	}

	sched := scheduler.New(scheduler.Config{
		Workers:  cfg.Scheduler.Workers,
		Timezone: cfg.Scheduler.Timezone,
	}, log.With(logx.String("comp", "scheduler")))

	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 0)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
		Redis: storage.RedisConfig{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		},
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}

	set, err := competitionSettings(cfg)
	if err != nil {
		return nil, err
	}
	bank, err := questionBank(cfg)
	if err != nil {
		return nil, err
	}

	engine := competition.NewEngine(ad, store, sched, bank, set,
		log.With(logx.String("comp", "competition")))

	disp := bot.New(ad, log.With(logx.String("comp", "commands")), cfg.Telegram.OwnerUserIDs)
	disp.Register(bot.CompetitionCommands(engine)...)
	disp.SetInterceptor(engine.HandlePublicAnswer)

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		adapter: ad,
		sched:   sched,
		store:   store,
		engine:  engine,
		disp:    disp,
		updates: make(chan kit.Update, 256),
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))

	// Transactional hot-reload: a config that fails validation is never
	// committed or published.
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(c context.Context, cfg *config.Config) error {
		return validate(cfg)
	})

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}
	a.sched.Start(a.sup.Context())

	if err := a.registerAutostart(a.cfgm.Get()); err != nil {
		return err
	}

	a.sup.Go("commands.dispatch", func(c context.Context) error {
		return a.disp.DispatchLoop(c, a.updates)
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: only the latest config matters.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							cfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.applyConfig(cfg)
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started")
	return nil
}

// applyConfig applies the hot-reloadable parts of a validated config:
// logging outputs, owner list, and competition settings for future sessions.
func (a *App) applyConfig(cfg *config.Config) {
	a.logs.Apply(logxConfig(cfg))
	a.logs.SetTelegramTarget(parseGroupLog(cfg.Telegram.GroupLog), cfg.Logging.Telegram.ThreadID)
	a.disp.SetOwners(cfg.Telegram.OwnerUserIDs)

	set, err := competitionSettings(cfg)
	if err != nil {
		a.log.Warn("competition settings not applied", logx.Err(err))
		return
	}
	bank, err := questionBank(cfg)
	if err != nil {
		a.log.Warn("question bank not applied", logx.Err(err))
		bank = nil
	}
	a.engine.Apply(set, bank)

	a.log.Info("config reloaded")
}

func (a *App) registerAutostart(cfg *config.Config) error {
	as := cfg.Competition.Autostart
	if !as.Enabled {
		return nil
	}
	if as.ChatID == 0 || strings.TrimSpace(as.Cron) == "" {
		return fmt.Errorf("competition.autostart requires chat_id and cron")
	}
	chatID := as.ChatID
	return a.sched.AddCron("competition.autostart", as.Cron, func(c context.Context) error {
		err := a.engine.Start(c, chatID)
		if errors.Is(err, competition.ErrAlreadyActive) {
			a.log.Debug("autostart skipped, competition still running", logx.Int64("chat", chatID))
			return nil
		}
		return err
	})
}

// Done is closed when the app supervisor context is canceled (fatal error or
// Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.sup.Cancel()

	// Each shutdown step gets an upper bound so one component can't stall
	// the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			} else {
				a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
			}
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Err(stepCtx.Err()))
		}
	}

	step("scheduler", 2*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	step("adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	if a.store != nil {
		step("storage", time.Second, func(context.Context) error { return a.store.Close() })
	}

	a.log.Info("app stopped")
	step("logging", time.Second, func(context.Context) error { return a.logs.Close() })
	return nil
}

package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"quizbot/internal/competition"
	"quizbot/internal/config"
	logx "quizbot/pkg/logx"
)

func logxConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			ThreadID:   cfg.Logging.Telegram.ThreadID,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

// parseGroupLog reads the telegram.group_log chat id. Zero means no log
// target.
func parseGroupLog(raw string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	chatID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return chatID
}

func competitionSettings(cfg *config.Config) (competition.Settings, error) {
	timeout, err := config.ParseDurationOrDefault("competition.question_timeout",
		cfg.Competition.QuestionTimeout, 5*time.Minute)
	if err != nil {
		return competition.Settings{}, err
	}
	return competition.Settings{
		PointsPerQuestion:  cfg.Competition.PointsPerQuestion,
		PointLossPerMinute: cfg.Competition.PointLossPerMinute,
		QuestionTimeout:    timeout,
	}, nil
}

func questionBank(cfg *config.Config) (*competition.Bank, error) {
	path := strings.TrimSpace(cfg.Competition.QuestionsFile)
	if path == "" {
		return competition.DefaultBank(), nil
	}
	return competition.LoadBank(path)
}

// validate rejects configs that would break running services when committed
// through hot-reload.
func validate(cfg *config.Config) error {
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if cfg.Scheduler.Workers < 0 {
		return fmt.Errorf("scheduler.workers must be >= 0")
	}
	if _, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 0); err != nil {
		return err
	}
	if _, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 0); err != nil {
		return err
	}
	if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("scheduler.timezone: invalid %q: %w", tz, err)
		}
	}
	if cfg.Competition.PointsPerQuestion < 0 {
		return fmt.Errorf("competition.points_per_question must be >= 0")
	}
	if cfg.Competition.PointLossPerMinute < 0 {
		return fmt.Errorf("competition.point_loss_per_minute must be >= 0")
	}
	if _, err := competitionSettings(cfg); err != nil {
		return err
	}
	if _, err := questionBank(cfg); err != nil {
		return err
	}
	if as := cfg.Competition.Autostart; as.Enabled {
		if as.ChatID == 0 || strings.TrimSpace(as.Cron) == "" {
			return fmt.Errorf("competition.autostart requires chat_id and cron")
		}
	}
	return nil
}

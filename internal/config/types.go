package config

type Config struct {
	Telegram    TelegramConfig    `json:"telegram"`
	Logging     LoggingConfig     `json:"logging"`
	Storage     StorageConfig     `json:"storage"`
	Competition CompetitionConfig `json:"competition"`
	Scheduler   SchedulerConfig   `json:"scheduler"`
}

type TelegramConfig struct {
	Token        string  `json:"token"`
	OwnerUserIDs []int64 `json:"owner_user_ids"`
	GroupLog     string  `json:"group_log"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}
type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}
type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ThreadID   int    `json:"thread_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

type StorageConfig struct {
	// Driver selects the leaderboard backend: "file", "sqlite", "redis",
	// or "none"/empty to disable persistence.
	Driver string `json:"driver"`
	Path   string `json:"path"`
	// BusyTimeout is a Go duration string (sqlite only).
	BusyTimeout string      `json:"busy_timeout,omitempty"`
	Redis       RedisConfig `json:"redis,omitempty"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db,omitempty"`
}

type CompetitionConfig struct {
	PointsPerQuestion  int `json:"points_per_question"`
	PointLossPerMinute int `json:"point_loss_per_minute"`
	// QuestionTimeout is a Go duration string (e.g. "5m").
	QuestionTimeout string `json:"question_timeout"`
	// QuestionsFile optionally points at a YAML question bank.
	// Empty means the built-in sample bank.
	QuestionsFile string          `json:"questions_file,omitempty"`
	Autostart     AutostartConfig `json:"autostart,omitempty"`
}

// AutostartConfig optionally starts a competition on a cron spec.
type AutostartConfig struct {
	Enabled bool   `json:"enabled"`
	Cron    string `json:"cron,omitempty"`
	ChatID  int64  `json:"chat_id,omitempty"`
}

type SchedulerConfig struct {
	Workers  int    `json:"workers"`
	Timezone string `json:"timezone,omitempty"`
}

// Package scheduler runs deferred work for the bot: named one-shot timers
// (question timeouts, delayed message cleanup) and cron-spec schedules
// (auto-started competitions).
//
// One-shot timers are cancellable by name. Cancellation is best-effort: a
// timer that already fired may still run its job, so callers must guard
// against stale execution themselves (the competition session does this with
// its question-index check).
package scheduler

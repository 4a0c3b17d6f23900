// Package competition implements timed multi-round quiz competitions for
// group channels: one session per channel, questions posted publicly,
// answers collected in private, latency-decayed scoring, and a persistent
// leaderboard.
package competition

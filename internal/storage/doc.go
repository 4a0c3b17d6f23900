package storage

// Package storage persists the cross-session leaderboard: a flat mapping of
// participant identity to cumulative score, loaded at startup and written on
// every award.

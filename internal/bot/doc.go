// Package bot turns gateway updates into command executions: parsing,
// access control, and a bounded worker pool for handlers.
package bot

// Package tgui contains small helpers for rendering Telegram HTML messages.
package tgui

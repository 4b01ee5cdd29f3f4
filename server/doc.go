// Package server exposes the webhook processor over HTTP with echo.
package server

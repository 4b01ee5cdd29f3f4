// Package webhooks authenticates SmileID result callbacks, normalizes their
// payloads, classifies the result code, and hands the record to an
// OutcomeSink.
package webhooks

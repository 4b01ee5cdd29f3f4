// Package links issues, updates, and inspects SmileID single-use
// verification links. Every call is one signed request/response round trip;
// provider and transport failures are returned as data, never as errors.
package links

// Package core contains the SmileID link and webhook contracts, the immutable
// configuration value, request signing, and the shared logging and error
// envelopes. Transport, storage, and HTTP adapters depend on this package;
// core must not depend on them.
package core

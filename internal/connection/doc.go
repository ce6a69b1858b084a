// Package connection implements the gateway connection lifecycle.
//
// One Session per configured credential:
//   - fetches a fresh gateway URL before every connect attempt
//   - drives the websocket through handshake, identity binding, and the
//     receive loop
//   - runs the heartbeat task once bound
//   - reconnects after a fixed backoff on every recoverable failure; an
//     invalid credential is terminal for that session only
//
// The Manager starts one Session task per credential and supervises them;
// no failure in one session propagates to another.
package connection

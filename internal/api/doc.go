// Package api provides the KOOK REST client consumed by the gateway bridge.
//
// Endpoints used directly by the bridge:
//   - GET gateway/index (session-specific websocket URL, fetched before every connect)
//   - GET user/me       (bot identity, resolved after a successful handshake)
//
// Every response shares the envelope {code, message, data}; a non-zero code is
// an API failure even when the HTTP status is 200. Authentication is a
// per-client bearer token sent as "Authorization: Bot <token>".
package api

// Package protocol implements the KOOK gateway wire protocol.
//
// Wire unit: a JSON envelope {s, d, sn}, optionally whole-frame
// zlib-compressed. Signal codes:
//   - 0 EVENT: chat/notice payload, carries a sequence number
//   - 1 HELLO: handshake result, inner code 0 on success
//   - 2 PING:  client heartbeat {"s":2,"sn":n}
//   - 3 PONG:  server heartbeat acknowledgment
//   - 5 RESUME, 7 RESUME_ACK: defined but never used by this variant
//   - 6 RECONNECT: server demands a full reconnect cycle
//
// The decoder turns a raw frame into an explicit Frame variant instead of
// signaling protocol conditions through control flow; the session state
// machine branches on the result.
package protocol

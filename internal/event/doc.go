// Package event defines the typed event model for decoded gateway payloads
// and the resolver that maps a raw EVENT payload onto it.
//
// Events are classified by a dotted path of the form
// post_type[.detail_type][.sub_type] (e.g. "message.group.text"). The
// registry maps paths to candidate shapes and answers prefix lookups
// most-specific-first; the resolver trial-parses candidates in that order
// and falls back to the minimal raw shape when none accepts the payload.
package event

// Package eventstream keeps the cache coherent with the hub in real time.
//
// The Client holds a WebSocket connection to the hub's event feed,
// authenticates with the same bearer token as the REST client, and
// subscribes to state-changed and service catalog events. Incoming state
// changes are applied straight to the cache (overwriting or invalidating
// per configuration), which is what lets the read path serve fresh data
// without refetching on every request.
//
// A supervising Run loop reconnects after any failure using exponential
// backoff with jitter, capped by configuration. The consecutive failure
// counter resets only once a connection reaches the streaming state, so
// a flapping feed keeps backing off instead of retrying hot.
package eventstream

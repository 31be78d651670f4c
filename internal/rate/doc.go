// Package rate provides an in-process sliding-window request limiter
// keyed by client address.
//
// # Window semantics
//
// Each key holds a window-start instant and a counter. A request after
// the window has elapsed resets the window and is admitted. Within the
// window, requests are admitted while the counter is at or below the
// limit; the first request past the limit is rejected and the counter
// stops advancing. Rejections never reset the window.
//
// # Memory bounds
//
// Entries whose window started more than twice the window length ago
// are evicted opportunistically during admitted requests. There is no
// background cleanup task and no external store.
package rate

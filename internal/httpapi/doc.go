// Package httpapi exposes the engine over HTTP. It owns the JSON
// request/response shapes and the mapping from engine errors to status
// codes; all business decisions stay in the engine.
package httpapi

// Package graph is a typed façade over the Microsoft Graph mail REST API.
//
// The Client owns the retry policy (bounded exponential backoff for 429 and
// 5xx responses, a single forced re-authentication on 401) and translates
// every failure into an *Error carrying a stable Kind, so callers never
// inspect HTTP status codes. Tokens are obtained through the TokenSource
// interface on every request; the client never stores credentials.
package graph

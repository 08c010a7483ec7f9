// Package pdf extracts plain text from PDF attachment content.
//
// Extraction is tolerant: a page that cannot be parsed is skipped and
// recorded, and a wholly unreadable document produces a structured failure
// rather than an error or a panic, so one corrupt attachment never takes a
// tool call down.
package pdf

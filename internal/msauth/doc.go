// Package msauth manages the OAuth2 delegated-flow token lifecycle for
// Microsoft Graph.
//
// Tokens are cached in a JSON file on local disk and refreshed through the
// Entra ID token endpoint when expired. The interactive browser flow
// (Manager.Login) is the only way to obtain the initial grant; it runs a
// loopback callback server and blocks until the user completes or cancels
// the sign-in, bounded by the caller's context.
//
// The Manager is the sole writer of the token cache file. Writes are atomic
// (temp file + rename) so a concurrent reader never observes a half-written
// record.
package msauth

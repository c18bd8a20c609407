// Package httpclient provides the HTTP transport layer for loadpulse.
//
// [NewClient] returns an http.Client tuned for load generation with
// connection pooling sized for many concurrent workers and a client-level
// per-request timeout:
//
//	client := httpclient.NewClient(30 * time.Second)
//
// [NewBodySource] abstracts where a request body comes from (inline string,
// file on disk, or nothing) and hands out a fresh reader per request so
// concurrent workers never share body read state.
package httpclient

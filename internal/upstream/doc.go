// Package upstream talks to the inference backend ("ml-service").
//
// It keeps a pool of backend replicas with health status, connection
// tracking and EWMA response times, and a Client that sends POST /chat
// requests under a deadline. Every failure, including timeouts and replicas
// being unavailable, is reported as a chat.Outcome rather than returned as an
// error, so the fallback coordinator can branch on a single value.
package upstream

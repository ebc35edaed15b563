// Package handler exposes the fallback coordinator over HTTP: POST /chat for
// questions and a status endpoint for operators.
package handler

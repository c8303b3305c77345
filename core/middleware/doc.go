// Package middleware contains HTTP middleware for the Fiber application.
//
// # Components
//
//   - auth: API key validation protecting every feature route.
//   - rayid: a unique request id (RayID) per request, stored in the context
//     and echoed in the response headers for tracing.
//
// rayid is registered first so every log line of a request carries the id.
package middleware

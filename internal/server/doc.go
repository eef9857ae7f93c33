// Package server provides HTTP routing, middleware, the JSON transfer API, and the OAuth callback handler.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [BasicRouter] uses [http.ServeMux] internally and checks the method inside the middleware chain,
// so [CORS] can answer preflight requests for any registered path.
//
// # JSON API
//
// [API] serves three endpoints for a browser frontend:
//   - GET /health
//   - POST /api/spotify-auth with actions get_auth_url, exchange_token, refresh_token
//   - POST /api/spotify-data with actions get_user_data, transfer_data
//
// The API is stateless. Callers pass tokens on every request.
//
// # OAuth Callback Handler
//
// [OAuthHandler] accepts one authorization-code callback, checks the state, completes the login,
// and sends the outcome through a channel. The state carries the session slot (source or target)
// the sign-in belongs to.
package server

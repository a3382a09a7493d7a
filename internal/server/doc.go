// Package server hosts the StudyFlow backend API and the CLI's OAuth loopback callback.
//
// # Backend API
//
// [API] is a gin engine over the SQL repositories. Sign-in endpoints issue HS256 session tokens
// ([SignJWT]); every other endpoint requires one ([RequireJWT]) and is scoped to its user.
//
//	GET    /health
//	POST   /auth/github              {"access_token"}     -> AuthResponse
//	POST   /auth/magic-link          {"email"}            -> 202
//	POST   /auth/magic-link/verify   {"email", "token"}   -> AuthResponse
//	GET    /auth/magic-link/verify   ?email=&token=       -> AuthResponse
//	GET    /auth/me
//	GET    /roadmaps, /roadmaps/:id
//	PUT    /roadmaps/:id
//	DELETE /roadmaps/:id
//	GET    /tasks, /tasks/:id
//	PUT    /tasks/:id
//	DELETE /tasks/:id
//
// Roadmap writes carry a client version. A write whose version is not newer than the stored one
// gets 409 Conflict, and a write to a deleted id gets 410 Gone.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the authorization code callback for the CLI's GitHub sign-in.
// A temporary [BasicRouter] on the loopback interface serves it, then shuts down after one callback.
// The state parameter is checked for CSRF and only the first callback is processed.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server

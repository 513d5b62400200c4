// Package auth provides the account primitives used by the TiltGuard API:
// bcrypt password handling, the users repository, JWT issuance and
// validation, and admin impersonation.
//
// Impersonation:
//   - An admin session can be exchanged for a token that carries the target
//     user's id and role plus an impersonatedBy claim with the admin id.
//   - Impersonated sessions cannot impersonate again. StopImpersonation
//     swaps the token back for a regular admin token after re-checking the
//     admin against the database.
//
// Activity sinks:
//   - ActivitySink receives login, registration and impersonation events.
//     Sinks run best-effort (errors are logged) so they never block
//     authentication.
package auth

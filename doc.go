// Package membership provides credential lifecycle primitives (registration,
// activation, password reset, remember-me tokens) backed by Bun repositories
// plus adapter points for sessions and outbound notifications.
//
// Account lifecycle:
//   - Users carry an Active flag persisted via Bun. Registration can require
//     activation, in which case the account is created inactive holding a
//     single-use activation code that Activate consumes atomically.
//   - Forgotten password codes are single-use and time-bounded: issuing a new
//     code supersedes the previous one, and checking an expired code clears it
//     so it can never be consumed later.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Engine to describe
//     lifecycle, login, and password reset events. Sinks run best-effort
//     (errors are logged) so you can forward to a database or queue without
//     blocking authentication.
//
// Ports:
//   - SessionPort and CookiePort decouple the engine from the HTTP layer.
//     FiberSession implements SessionPort over fiber cookies with a signed
//     token; NotificationPort carries activation and reset codes to the
//     user through whatever channel the host application provides.
package membership

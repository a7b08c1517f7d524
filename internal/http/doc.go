// Package http provides HTTP handlers and middleware for the calbook API.
//
// The router exposes two surfaces. The public surface needs no session:
//   - POST /owners: registers an owner account. Body: {"email","display_name","password"}.
//   - POST /sessions: issues a session token. Body: {"email","password"}. Response:
//     {"token","expires_at","owner"} with the token also surfaced via the
//     `X-Session-Token` header and a `session_token` cookie.
//   - DELETE /sessions/current: revokes the current session token extracted from
//     the Authorization header or session cookie. Returns 204 and clears the cookie.
//   - GET /booking-pages/{slug}/slots?date=YYYY-MM-DD: lists bookable slots for a day.
//   - POST /booking-pages/{slug}/bookings: books a slot. Responds with the
//     `bookingDTO` defined in booking_handler.go; a taken slot yields 409.
//   - GET /bookings/{trackingId}, POST /bookings/{trackingId}/cancel: booking
//     lookup and cancellation by the opaque tracking identifier.
//   - GET /events/{eventId}/sessions, GET /event-sessions/{id}: community event
//     session listings and lookup.
//   - POST /event-sessions/{id}/applications, DELETE /event-sessions/{id}/applications:
//     speaker application submission and withdrawal.
//
// The owner surface sits behind RequireSession:
//   - GET /pages, POST /pages, GET/PUT/DELETE /pages/{id}: booking page management
//     exchanging the `pageDTO` payload defined in page_handler.go.
//   - GET /accounts, POST /accounts, POST /accounts/{id}/deactivate,
//     POST /accounts/{id}/sync: connected calendar account management. Tokens are
//     accepted on connect but never echoed back.
//   - POST /event-sessions, POST/DELETE /event-sessions/{id}/speakers,
//     POST /event-sessions/{id}/applications/approve,
//     POST /event-sessions/{id}/applications/reject,
//     POST /event-sessions/{id}/cancel: organizer controls for community event
//     sessions exchanging the `eventSessionDTO` payload.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http

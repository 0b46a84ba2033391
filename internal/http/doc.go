// Package http renders the event listing site.
//
// The router exposes the following pages:
//   - GET /: landing page with the newest public events.
//   - GET /events: public calendar filtered by the category, search, page and
//     limit query parameters.
//   - GET /events/{id}: event detail. Unknown or malformed ids render the 404 page.
//   - GET /events/new, POST /events, GET /events/{id}/edit, PUT /events/{id},
//     DELETE /events/{id}: owner event management behind RequireAuth. Forms
//     tunnel PUT and DELETE through POST with a _method field.
//   - /auth/login, /auth/register, /auth/forgot-password,
//     /auth/reset-password/{token}: guest pages, redirected to the dashboard
//     for signed in visitors. POST /auth/logout ends the session.
//   - GET /users/dashboard, GET|POST /users/profile, DELETE /users/account:
//     account pages behind RequireAuth.
//   - GET /health: JSON liveness probe.
//
// Sessions live server side. SessionManager.Load resolves the session_id
// cookie on every request and writes the session back only when a handler
// changed it, which includes queueing or consuming a flash message.
// Unmatched routes and failures answer with HTML or JSON depending on the
// Accept header.
package http

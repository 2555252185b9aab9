// Package api provides an HTTP client for the remote task API.
//
// # Overview
//
// The client is the only component that talks to the backend. It lists tasks
// for a filter/sort selection, performs the write operations (create, update,
// delete, toggle, batch complete), and answers a cheap health probe used by
// the connectivity poller.
//
// # Client Usage
//
//	client, err := api.NewClient("127.0.0.1:8080", token)
//	if err != nil {
//		log.Fatalf("failed to create client: %v", err)
//	}
//
//	rows, err := client.ListTasks(ctx, criteria, order)
//	if err != nil {
//		log.Printf("list failed: %v", err)
//	}
//
// # API Endpoints
//
//   - GET /api/tasks?<selection>: rows for a selection (see query.Values)
//   - POST /api/tasks, PATCH /api/tasks/{id}, DELETE /api/tasks/{id}
//   - POST /api/tasks/{id}/toggle, POST /api/tasks/batch
//   - GET /api/health: connectivity probe
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation and timeout control
//   - Set Accept: application/json and User-Agent: tasksync/0.1
//   - Carry a fresh X-Request-ID (UUID) for server-side correlation
//   - Send Authorization: Bearer <token> when a token is configured
//   - Have a 5-second timeout
//
// # Error Handling
//
//   - Transport failures: "execute request: dial tcp: connection refused"
//   - Non-2xx responses: *StatusError with method, path, status code and the
//     server's error message, e.g. "api GET /api/tasks returned status 401: token expired"
//   - Malformed bodies: "decode response: unexpected end of JSON input"
//
// The errclass package turns these into user-facing classifications; this
// package never retries.
//
// # Ordering
//
// ListTasks re-sorts the returned rows with SortTasks so the displayed order
// always matches the requested SortOrder, even when the backend answered with
// an older sort.
//
// # Thread Safety
//
// Client is safe for concurrent use. The bearer token is guarded by a
// RWMutex so ClearToken can run while requests are in flight.
package api

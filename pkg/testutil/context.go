package testutil

import "net/http"

// WithBearer sets the Authorization header for handlers mounted behind the
// real auth middleware.
func WithBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// WithAdminToken sets the admin header checked by RequireAdminToken.
func WithAdminToken(req *http.Request, token string) *http.Request {
	req.Header.Set("X-Admin-Token", token)
	return req
}

package internal

import (
	"context"
	"time"
)

// Requester is the authenticated identity for one request. It is carried
// in the request context and passed explicitly into services; there is no
// process-wide current user.
type Requester struct {
	ID             int64   `json:"id"`
	Username       string  `json:"username"`
	FullName       string  `json:"full_name"`
	Role           Role    `json:"role"`
	DepartmentID   *int64  `json:"department_id"`
	DepartmentName *string `json:"department_name"`
}

type ctxKey string

const requesterKey ctxKey = "requester"

func ContextWithRequester(ctx context.Context, r *Requester) context.Context {
	return context.WithValue(ctx, requesterKey, r)
}

func RequesterFromContext(ctx context.Context) (*Requester, bool) {
	if ctx == nil {
		return nil, false
	}
	r, ok := ctx.Value(requesterKey).(*Requester)
	return r, ok && r != nil
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if
// duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}

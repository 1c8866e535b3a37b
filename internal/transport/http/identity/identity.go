// Package identity carries the caller's account id through the request
// context. Authentication itself happens upstream; the gateway forwards the
// authenticated account in the X-Account-ID header.
package identity

import "context"

type contextKey struct{}

func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, contextKey{}, accountID)
}

func AccountIDFromContext(ctx context.Context) (string, bool) {
	accountID, ok := ctx.Value(contextKey{}).(string)
	if !ok || accountID == "" {
		return "", false
	}
	return accountID, true
}

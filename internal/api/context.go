package api

import (
	"context"

	"github.com/org/noderef/pkg/models"
)

type contextKey string

const (
	ctxKeySession   contextKey = "session"
	ctxKeyRequestID contextKey = "request_id"
)

func withSession(ctx context.Context, s *models.Session) context.Context {
	return context.WithValue(ctx, ctxKeySession, s)
}

func sessionFromCtx(ctx context.Context) *models.Session {
	s, _ := ctx.Value(ctxKeySession).(*models.Session)
	return s
}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

func requestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

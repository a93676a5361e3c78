// Package middleware 提供HTTP中间件
package middleware

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/yipai/yipai/internal/metrics"
	"github.com/yipai/yipai/pkg/logger"
	"github.com/yipai/yipai/pkg/model"
)

// 身份信息由上游网关注入请求头，这里只做提取与传递
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
	HeaderRequestID = "X-Request-ID"
)

type contextKey string

const (
	actorIDKey   contextKey = "actor_id"
	actorRoleKey contextKey = "actor_role"
	requestIDKey contextKey = "request_id"
)

// Actor 请求操作者
type Actor struct {
	ID   uuid.UUID
	Role model.Role
}

// ActorFromContext 从上下文提取操作者
func ActorFromContext(ctx context.Context) (*Actor, bool) {
	id, ok := ctx.Value(actorIDKey).(uuid.UUID)
	if !ok {
		return nil, false
	}
	role, _ := ctx.Value(actorRoleKey).(model.Role)
	return &Actor{ID: id, Role: role}, true
}

// RequestIDFromContext 从上下文提取请求ID
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// IdentityMiddleware 身份提取中间件
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if raw := r.Header.Get(HeaderActorID); raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				ctx = context.WithValue(ctx, actorIDKey, id)
			}
		}
		if raw := r.Header.Get(HeaderActorRole); raw != "" {
			role := model.Role(raw)
			if role.IsValid() {
				ctx = context.WithValue(ctx, actorRoleKey, role)
			}
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole 角色检查中间件（审批接口要求主管或行政）
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	allowed := make(map[model.Role]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				http.Error(w, `{"error":"unauthorized","message":"缺少操作者身份"}`, http.StatusUnauthorized)
				return
			}
			if !allowed[actor.Role] {
				http.Error(w, `{"error":"forbidden","message":"权限不足"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestIDMiddleware 请求ID中间件
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = generateRequestID()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// statusRecorder 捕获响应状态码
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// LoggingMiddleware 日志与指标中间件
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		metrics.RecordRequestMetrics(r.Method, r.URL.Path, rec.status, duration)

		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", duration).
			Str("request_id", RequestIDFromContext(r.Context())).
			Msg("HTTP请求")
	})
}

// RecoveryMiddleware 恢复中间件（捕获panic）
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error().Interface("panic", err).Str("path", r.URL.Path).Msg("请求处理panic")
				http.Error(w, `{"error":"internal_error","message":"服务器内部错误"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// generateRequestID 生成请求ID
func generateRequestID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return fmt.Sprintf("req_%x", b[:8])
}

package api

import (
	"context"
)

// Principal 通过 JWT 鉴权的调用方（注入到 context）
type Principal struct {
	Subject string `json:"subject"`
}

type principalContextKey struct{}

// WithPrincipal 注入 Principal 到 context
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFrom 从 context 提取 Principal，未开启鉴权时返回 nil, false
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*Principal)
	return p, ok && p != nil
}

// subjectOf 返回调用方 subject，未鉴权时为 "anonymous"
func subjectOf(ctx context.Context) string {
	if p, ok := PrincipalFrom(ctx); ok && p.Subject != "" {
		return p.Subject
	}
	return "anonymous"
}

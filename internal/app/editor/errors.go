package editor

import "errors"

var (
	// ErrSessionNotFound 会话不存在或已过期
	ErrSessionNotFound = errors.New("editor session not found")
)

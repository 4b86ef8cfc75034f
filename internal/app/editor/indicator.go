package editor

import "time"

// SavedCueDuration 保存成功提示的显示时长
const SavedCueDuration = 800 * time.Millisecond

// SaveIndicator 保存成功后的短暂提示，只依赖时间戳，不启动定时器
type SaveIndicator struct {
	savedAt time.Time
}

// Mark 记录一次成功保存
func (s *SaveIndicator) Mark(now time.Time) { s.savedAt = now }

// Saved 在保存后的 SavedCueDuration 内返回 true
func (s *SaveIndicator) Saved(now time.Time) bool {
	if s.savedAt.IsZero() {
		return false
	}
	return now.Sub(s.savedAt) < SavedCueDuration
}

// SavedAt 最近一次成功保存的时间
func (s *SaveIndicator) SavedAt() time.Time { return s.savedAt }

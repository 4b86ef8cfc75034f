package editor

// Observer 编辑事件统计（可选），由 metrics.Collector 实现
type Observer interface {
	NodeCreated()
	NodeRemoved()
	EdgeCreated()
	EdgeRemoved()
	ConnectionRejected(kind string)
	ObserveValidation(valid bool)
	SessionsChanged(n int)
}

type nopObserver struct{}

func (nopObserver) NodeCreated()              {}
func (nopObserver) NodeRemoved()              {}
func (nopObserver) EdgeCreated()              {}
func (nopObserver) EdgeRemoved()              {}
func (nopObserver) ConnectionRejected(string) {}
func (nopObserver) ObserveValidation(bool)    {}
func (nopObserver) SessionsChanged(int)       {}

package exporter

// SetRenameForTest 替换内部的 rename 实现，返回恢复函数，仅供测试使用
func SetRenameForTest(fn func(oldPath, newPath string) error) func() {
	previous := rename
	rename = fn
	return func() { rename = previous }
}

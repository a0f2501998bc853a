package exporter

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kyson-dev/sub-optimizer/internal/document"
	"github.com/kyson-dev/sub-optimizer/internal/logger"
	"github.com/sagernet/sing/common/json"
)

// Export 序列化为缩进两格的 JSON
// 非 ASCII 字符（例如出站 tag 里的 emoji 和中文）和 & < > 原样输出
func Export(doc *document.Object) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("nothing to export")
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return buf.Bytes(), nil
}

// Save 原子写入：先写 path.tmp，成功后再重命名为 path
// 这样写到一半失败时，旧文件仍然完整
func Save(path string, data []byte) error {
	tmpPath := path + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file error: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write config failed: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync config failed: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file error: %w", err)
	}

	if err := rename(tmpPath, path); err != nil {
		if err := replace(tmpPath, path); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to save file: %w", err)
		}
	}

	abs, _ := filepath.Abs(path)
	logger.Info("Config saved", "path", abs, "bytes", len(data))
	return nil
}

var rename = os.Rename

// replace 处理 Windows 上目标文件存在时重命名失败的情况
// 旧文件先挪到 path.bak，新文件就位后才删除，失败时恢复
func replace(tmpPath, path string) error {
	backupPath := path + ".bak"
	if err := rename(path, backupPath); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		return rename(tmpPath, path)
	}
	if err := rename(tmpPath, path); err != nil {
		if restoreErr := rename(backupPath, path); restoreErr != nil {
			logger.Error("Failed to restore previous config", "path", path, "backup", backupPath, "error", restoreErr)
		}
		return err
	}
	_ = os.Remove(backupPath)
	return nil
}

// Write 是 Export + Save
func Write(path string, doc *document.Object) ([]byte, error) {
	data, err := Export(doc)
	if err != nil {
		return nil, err
	}
	if err := Save(path, data); err != nil {
		return nil, err
	}
	return data, nil
}

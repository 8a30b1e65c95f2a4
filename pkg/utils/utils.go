// Package utils 通用工具函数
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// invalidFilenameChars 各操作系统非法的文件名字符
const invalidFilenameChars = `/\:*?"<>|`

// SanitizeFilename 清理文件名中的非法字符
// 非法字符替换为下划线，去掉首尾的空格和点，超长截断，空结果回退为 "recording"
func SanitizeFilename(name string) string {
	sanitized := strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidFilenameChars, r) {
			return '_'
		}
		return r
	}, name)

	sanitized = strings.Trim(sanitized, ". ")

	// 限制 200 个字符，给日期和扩展名留空间
	runes := []rune(sanitized)
	if len(runes) > 200 {
		sanitized = strings.TrimSpace(string(runes[:200]))
	}

	if sanitized == "" {
		sanitized = "recording"
	}

	return sanitized
}

// ResolveOutputPath 生成不冲突的输出文件路径
// 基础名已存在时追加递增的 " (N)" 后缀，直到找到空闲文件名
func ResolveOutputPath(dir, base, ext string) string {
	path := filepath.Join(dir, base+ext)
	if !FileExists(path) {
		return path
	}

	counter := 1
	for {
		path = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", base, counter, ext))
		if !FileExists(path) {
			return path
		}
		counter++
	}
}

// FileExists 判断文件是否存在
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ChunkStrings 将字符串切片按指定大小分块
func ChunkStrings(items []string, size int) [][]string {
	if size <= 0 || len(items) == 0 {
		return nil
	}

	var chunks [][]string
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}

// FormatBytes 格式化字节数为可读字符串
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

// Package utils 工具函数测试
package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"普通标题", "晚间新闻", "晚间新闻"},
		{"非法字符替换", `News: 10/7 "Special" <live>?`, "News_ 10_7 _Special_ _live__"},
		{"反斜杠和竖线", `a\b|c`, "a_b_c"},
		{"去首尾点和空格", "  .节目名. ", "节目名"},
		{"空串回退", "", "recording"},
		{"全是非法内容回退", " .. ", "recording"},
		{"超长截断", strings.Repeat("长", 300), strings.Repeat("长", 200)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeFilename(tt.input)
			if got != tt.expected {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestResolveOutputPath(t *testing.T) {
	dir := t.TempDir()
	base := "晚间新闻 (2026-08-27 2000)"

	// 首次没有冲突，用原名
	first := ResolveOutputPath(dir, base, ".ts")
	if first != filepath.Join(dir, base+".ts") {
		t.Fatalf("首次路径 = %q", first)
	}

	// 占用后依次追加 (1)、(2)
	if err := os.WriteFile(first, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	second := ResolveOutputPath(dir, base, ".ts")
	if second != filepath.Join(dir, base+" (1).ts") {
		t.Errorf("第二次路径 = %q", second)
	}

	if err := os.WriteFile(second, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	third := ResolveOutputPath(dir, base, ".ts")
	if third != filepath.Join(dir, base+" (2).ts") {
		t.Errorf("第三次路径 = %q", third)
	}
}

func TestChunkStrings(t *testing.T) {
	tests := []struct {
		name      string
		count     int
		size      int
		wantParts []int
	}{
		{"整除", 10, 5, []int{5, 5}},
		{"有余数", 12, 5, []int{5, 5, 2}},
		{"不足一块", 3, 5, []int{3}},
		{"空输入", 0, 5, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]string, tt.count)
			chunks := ChunkStrings(items, tt.size)

			if len(chunks) != len(tt.wantParts) {
				t.Fatalf("块数 = %d, want %d", len(chunks), len(tt.wantParts))
			}
			for i, want := range tt.wantParts {
				if len(chunks[i]) != want {
					t.Errorf("第 %d 块大小 = %d, want %d", i, len(chunks[i]), want)
				}
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{512, "512 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1048576, "1.00 MB"},
		{5368709120, "5.00 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := FormatBytes(tt.input); got != tt.expected {
				t.Errorf("FormatBytes(%d) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

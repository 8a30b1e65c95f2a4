// Package models 录制状态机测试
package models

import (
	"testing"
	"time"
)

func TestRecording_MarkInProgress(t *testing.T) {
	now := time.Date(2026, 8, 27, 20, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		status  RecordingStatus
		wantErr bool
	}{
		{"已排期可以开始", StatusScheduled, false},
		{"录制中不能再开始", StatusInProgress, true},
		{"已完成不能开始", StatusCompleted, true},
		{"已失败不能开始", StatusFailed, true},
		{"已取消不能开始", StatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &Recording{Status: tt.status}
			err := rec.MarkInProgress(now)

			if (err != nil) != tt.wantErr {
				t.Fatalf("MarkInProgress() err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				if rec.Status != StatusInProgress {
					t.Errorf("status = %q, want %q", rec.Status, StatusInProgress)
				}
				if rec.ActualStartTime == nil || !rec.ActualStartTime.Equal(now) {
					t.Errorf("actual_start_time = %v, want %v", rec.ActualStartTime, now)
				}
			} else if rec.Status != tt.status {
				t.Errorf("守卫拒绝后状态被改成了 %q", rec.Status)
			}
		})
	}
}

func TestRecording_MarkCompleted(t *testing.T) {
	now := time.Date(2026, 8, 27, 21, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		status  RecordingStatus
		wantErr bool
	}{
		{"录制中可以完成", StatusInProgress, false},
		{"已排期不能直接完成", StatusScheduled, true},
		{"已完成不能再完成", StatusCompleted, true},
		{"已失败不能完成", StatusFailed, true},
		{"已取消不能完成", StatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &Recording{Status: tt.status}
			err := rec.MarkCompleted(now, "/recordings/out.ts")

			if (err != nil) != tt.wantErr {
				t.Fatalf("MarkCompleted() err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				if rec.Status != StatusCompleted {
					t.Errorf("status = %q, want %q", rec.Status, StatusCompleted)
				}
				if rec.FilePath == nil || *rec.FilePath != "/recordings/out.ts" {
					t.Errorf("file_path = %v", rec.FilePath)
				}
				if rec.ActualEndTime == nil {
					t.Error("actual_end_time 未设置")
				}
			}
		})
	}
}

func TestRecording_MarkFailed(t *testing.T) {
	now := time.Date(2026, 8, 27, 21, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		status  RecordingStatus
		wantErr bool
	}{
		{"已排期可以失败", StatusScheduled, false},
		{"录制中可以失败", StatusInProgress, false},
		{"已完成不能失败", StatusCompleted, true},
		{"已失败不能再失败", StatusFailed, true},
		{"已取消不能失败", StatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &Recording{Status: tt.status}
			err := rec.MarkFailed("调谐器不可用", &now)

			if (err != nil) != tt.wantErr {
				t.Fatalf("MarkFailed() err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				if rec.Status != StatusFailed {
					t.Errorf("status = %q, want %q", rec.Status, StatusFailed)
				}
				if rec.ErrorMessage == nil || *rec.ErrorMessage != "调谐器不可用" {
					t.Errorf("error_message = %v", rec.ErrorMessage)
				}
			}
		})
	}

	t.Run("结束时间可选", func(t *testing.T) {
		rec := &Recording{Status: StatusScheduled}
		if err := rec.MarkFailed("启动前失败", nil); err != nil {
			t.Fatal(err)
		}
		if rec.ActualEndTime != nil {
			t.Errorf("actual_end_time = %v, want nil", rec.ActualEndTime)
		}
	})
}

func TestRecording_MarkCancelled(t *testing.T) {
	tests := []struct {
		name    string
		status  RecordingStatus
		wantErr bool
	}{
		{"已排期可以取消", StatusScheduled, false},
		{"录制中不能取消", StatusInProgress, true},
		{"已完成不能取消", StatusCompleted, true},
		{"已失败不能取消", StatusFailed, true},
		{"已取消不能再取消", StatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &Recording{Status: tt.status}
			err := rec.MarkCancelled()

			if (err != nil) != tt.wantErr {
				t.Fatalf("MarkCancelled() err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && rec.Status != StatusCancelled {
				t.Errorf("status = %q, want %q", rec.Status, StatusCancelled)
			}
		})
	}
}

func TestRecording_ValidatePadding(t *testing.T) {
	tests := []struct {
		name    string
		start   int
		end     int
		wantErr bool
	}{
		{"默认值合法", 60, 120, false},
		{"零填充合法", 0, 0, false},
		{"上限合法", MaxPaddingStartSeconds, MaxPaddingEndSeconds, false},
		{"提前填充为负", -1, 0, true},
		{"提前填充超限", MaxPaddingStartSeconds + 1, 0, true},
		{"延后填充为负", 0, -1, true},
		{"延后填充超限", 0, MaxPaddingEndSeconds + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &Recording{PaddingStartSeconds: tt.start, PaddingEndSeconds: tt.end}
			if err := rec.ValidatePadding(); (err != nil) != tt.wantErr {
				t.Errorf("ValidatePadding() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestScheduleID(t *testing.T) {
	airTime := time.Date(2026, 8, 27, 20, 30, 0, 0, time.UTC)

	got := ScheduleID("10001", airTime)
	want := "10001_2026-08-27T20:30:00Z"
	if got != want {
		t.Errorf("ScheduleID() = %q, want %q", got, want)
	}

	// 非 UTC 时间也要归一化为 UTC
	loc := time.FixedZone("UTC+8", 8*3600)
	gotLocal := ScheduleID("10001", airTime.In(loc))
	if gotLocal != want {
		t.Errorf("ScheduleID() 本地时区 = %q, want %q", gotLocal, want)
	}
}

// Package hdhomerun HDHomeRun 调谐器客户端
package hdhomerun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/smysle/sakura-dvr-go/pkg/logger"
)

var (
	// ErrTunerNotAvailable 所有调谐器都被占用
	ErrTunerNotAvailable = errors.New("没有空闲的调谐器")
	// ErrTuningFailed 调谐失败，频道可能不存在或无信号
	ErrTuningFailed = errors.New("调谐失败，频道可能不存在")
)

// DeviceInfo 设备发现信息
type DeviceInfo struct {
	FriendlyName    string `json:"FriendlyName"`
	ModelNumber     string `json:"ModelNumber"`
	FirmwareName    string `json:"FirmwareName"`
	FirmwareVersion string `json:"FirmwareVersion"`
	DeviceID        string `json:"DeviceID"`
	DeviceAuth      string `json:"DeviceAuth"`
	BaseURL         string `json:"BaseURL"`
	LineupURL       string `json:"LineupURL"`
	TunerCount      int    `json:"TunerCount"`
}

// LineupChannel 设备扫描到的频道
type LineupChannel struct {
	GuideNumber string `json:"GuideNumber"`
	GuideName   string `json:"GuideName"`
	VideoCodec  string `json:"VideoCodec"`
	AudioCodec  string `json:"AudioCodec"`
	HD          int    `json:"HD"`
	URL         string `json:"URL"`
}

// StreamResult 一次流捕获的结果
type StreamResult struct {
	TunerID      string
	BytesWritten int64
	Elapsed      time.Duration
	ResumeCount  int
}

// Client HDHomeRun 客户端
// deviceURL 指向设备管理接口，streamURL 指向 5004 端口的流接口
type Client struct {
	deviceURL string
	streamURL string

	maxResumeAttempts int
	resumeDelay       time.Duration

	apiClient *resty.Client
	// 流请求不能设超时，录制可持续数小时
	streamClient *resty.Client
}

// NewClient 创建新的 HDHomeRun 客户端
func NewClient(deviceURL, streamURL string, maxResumeAttempts int, resumeDelay time.Duration) *Client {
	apiClient := resty.New()
	apiClient.SetTimeout(10 * time.Second)
	apiClient.SetRetryCount(2)
	apiClient.SetRetryWaitTime(2 * time.Second)

	return &Client{
		deviceURL:         deviceURL,
		streamURL:         streamURL,
		maxResumeAttempts: maxResumeAttempts,
		resumeDelay:       resumeDelay,
		apiClient:         apiClient,
		streamClient:      resty.New(),
	}
}

// GetDeviceInfo 获取设备信息
func (c *Client) GetDeviceInfo() (*DeviceInfo, error) {
	var info DeviceInfo
	resp, err := c.apiClient.R().
		SetResult(&info).
		Get(c.deviceURL + "/discover.json")
	if err != nil {
		return nil, fmt.Errorf("连接 HDHomeRun 失败: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("获取设备信息失败: HTTP %d", resp.StatusCode())
	}
	return &info, nil
}

// GetLineup 获取设备扫描到的频道列表
func (c *Client) GetLineup() ([]LineupChannel, error) {
	var channels []LineupChannel
	resp, err := c.apiClient.R().
		SetResult(&channels).
		Get(c.deviceURL + "/lineup.json")
	if err != nil {
		return nil, fmt.Errorf("获取频道列表失败: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("获取频道列表失败: HTTP %d", resp.StatusCode())
	}
	return channels, nil
}

// VerifyChannel 检查频道号是否在设备频道列表中
func (c *Client) VerifyChannel(channel string) (bool, error) {
	channels, err := c.GetLineup()
	if err != nil {
		return false, err
	}
	for _, ch := range channels {
		if ch.GuideNumber == channel {
			return true, nil
		}
	}
	return false, nil
}

// GetStreamURL 构造频道流地址
func (c *Client) GetStreamURL(tuner, channel string, durationSeconds int) string {
	return fmt.Sprintf("%s/%s/v%s?duration=%d", c.streamURL, tuner, channel, durationSeconds)
}

// ReleaseTuner 让指定调谐器停止输出
// "auto" 不绑定具体调谐器，无法释放
func (c *Client) ReleaseTuner(tuner string) error {
	if tuner == "" || tuner == "auto" {
		return fmt.Errorf("无法释放调谐器: %q 不是具体的调谐器编号", tuner)
	}

	resp, err := c.apiClient.R().Get(fmt.Sprintf("%s/%s/vnone", c.streamURL, tuner))
	if err != nil {
		return fmt.Errorf("释放调谐器失败: %w", err)
	}
	if resp.StatusCode() >= 400 {
		return fmt.Errorf("释放调谐器失败: HTTP %d", resp.StatusCode())
	}

	logger.Debug().Str("tuner", tuner).Msg("调谐器已释放")
	return nil
}

// StreamChannel 捕获频道流写入文件，流中断时按剩余时长续录
// 首次请求新建（或清空）文件，续录的数据接在已有内容之后
func (c *Client) StreamChannel(ctx context.Context, tuner, channel string, duration time.Duration, outputPath string) (*StreamResult, error) {
	start := time.Now()
	result := &StreamResult{TunerID: tuner}

	file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return result, fmt.Errorf("打开输出文件失败: %w", err)
	}
	defer file.Close()

	remaining := duration
	for {
		n, err := c.streamOnce(ctx, tuner, channel, remaining, file)
		result.BytesWritten += n
		if err == nil {
			break
		}

		// 调谐类错误和取消不重试，直接上抛
		if errors.Is(err, ErrTunerNotAvailable) || errors.Is(err, ErrTuningFailed) || ctx.Err() != nil {
			result.Elapsed = time.Since(start)
			return result, err
		}

		if result.ResumeCount >= c.maxResumeAttempts {
			result.Elapsed = time.Since(start)
			return result, fmt.Errorf("录制流中断，重试 %d 次后放弃: %w", c.maxResumeAttempts, err)
		}

		result.ResumeCount++
		logger.Warn().
			Err(err).
			Str("channel", channel).
			Int("resume", result.ResumeCount).
			Int64("bytes", result.BytesWritten).
			Msg("录制流中断，准备续录")

		select {
		case <-ctx.Done():
			result.Elapsed = time.Since(start)
			return result, ctx.Err()
		case <-time.After(c.resumeDelay):
		}

		// 按实际经过的时间折算剩余录制时长
		remaining = duration - time.Since(start)
		if remaining <= 0 {
			break
		}
	}

	result.Elapsed = time.Since(start)
	logger.Info().
		Str("channel", channel).
		Str("file", outputPath).
		Int64("bytes", result.BytesWritten).
		Int("resume", result.ResumeCount).
		Dur("elapsed", result.Elapsed).
		Msg("频道流捕获完成")
	return result, nil
}

// streamOnce 发起一次流请求并把响应体写入 w
func (c *Client) streamOnce(ctx context.Context, tuner, channel string, duration time.Duration, w io.Writer) (int64, error) {
	seconds := int(duration.Seconds())
	if seconds < 1 {
		seconds = 1
	}

	resp, err := c.streamClient.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(c.GetStreamURL(tuner, channel, seconds))
	if err != nil {
		return 0, fmt.Errorf("连接调谐器失败: %w", err)
	}

	raw := resp.RawBody()
	defer raw.Close()

	switch resp.StatusCode() {
	case http.StatusServiceUnavailable:
		return 0, ErrTunerNotAvailable
	case http.StatusNotFound:
		return 0, ErrTuningFailed
	}
	if resp.StatusCode() >= 400 {
		return 0, fmt.Errorf("调谐器返回错误: HTTP %d", resp.StatusCode())
	}

	n, err := io.Copy(w, raw)
	if err != nil {
		return n, fmt.Errorf("读取流中断: %w", err)
	}
	return n, nil
}

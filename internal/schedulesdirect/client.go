package schedulesdirect

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/smysle/sakura-dvr-go/pkg/logger"
)

// Client Schedules Direct API 客户端
type Client struct {
	baseURL        string
	username       string
	passwordHash   string
	tokenCachePath string
	httpClient     *resty.Client

	mu           sync.Mutex
	token        string
	tokenExpires time.Time
}

// NewClient 创建新的 Schedules Direct 客户端
// 节目数据接口响应可达数十 MB，超时设置得比普通 API 客户端长
func NewClient(baseURL, username, password, tokenCachePath string) *Client {
	client := resty.New()
	client.SetTimeout(10 * time.Minute)
	client.SetRetryCount(3)
	client.SetRetryWaitTime(4 * time.Second)
	client.SetRetryMaxWaitTime(15 * time.Second)
	client.SetHeader("User-Agent", "sakura-dvr/1.0")

	hash := sha1.Sum([]byte(password))

	return &Client{
		baseURL:        baseURL,
		username:       username,
		passwordHash:   hex.EncodeToString(hash[:]),
		tokenCachePath: tokenCachePath,
		httpClient:     client,
	}
}

// Login 获取新令牌并写入缓存文件
func (c *Client) Login() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loginLocked()
}

func (c *Client) loginLocked() error {
	resp, err := c.httpClient.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"username": c.username,
			"password": c.passwordHash,
		}).
		Post(c.baseURL + "/token")
	if err != nil {
		return fmt.Errorf("令牌请求失败: %w", err)
	}

	var result TokenResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return fmt.Errorf("解析令牌响应失败: %w", err)
	}

	if result.Code != CodeOK || result.Token == "" {
		return &APIError{Code: result.Code, Message: result.Message, ServerID: result.ServerID}
	}

	c.token = result.Token
	c.tokenExpires = time.Unix(result.TokenExpires, 0)
	c.saveTokenCache()

	logger.Info().Time("expires", c.tokenExpires).Msg("Schedules Direct 登录成功")
	return nil
}

// ensureToken 确保持有有效令牌，优先复用缓存
func (c *Client) ensureToken() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 提前一分钟视为过期，避免请求途中失效
	deadline := time.Now().Add(time.Minute)

	if c.token != "" && c.tokenExpires.After(deadline) {
		return c.token, nil
	}

	if c.loadTokenCache() && c.tokenExpires.After(deadline) {
		logger.Debug().Msg("使用缓存的 Schedules Direct 令牌")
		return c.token, nil
	}

	if err := c.loginLocked(); err != nil {
		return "", err
	}
	return c.token, nil
}

// invalidateToken 作废当前令牌并删除缓存文件
func (c *Client) invalidateToken() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = ""
	c.tokenExpires = time.Time{}
	if c.tokenCachePath != "" {
		os.Remove(c.tokenCachePath)
	}
}

// loadTokenCache 从缓存文件加载令牌，成功返回 true
func (c *Client) loadTokenCache() bool {
	if c.tokenCachePath == "" {
		return false
	}

	data, err := os.ReadFile(c.tokenCachePath)
	if err != nil {
		return false
	}

	var cached tokenCacheFile
	if err := json.Unmarshal(data, &cached); err != nil || cached.Token == "" {
		return false
	}

	c.token = cached.Token
	c.tokenExpires = time.Unix(cached.TokenExpires, 0)
	return true
}

// saveTokenCache 将令牌写入缓存文件，失败只记日志
func (c *Client) saveTokenCache() {
	if c.tokenCachePath == "" {
		return
	}

	if dir := filepath.Dir(c.tokenCachePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Warn().Err(err).Msg("创建令牌缓存目录失败")
			return
		}
	}

	data, _ := json.Marshal(tokenCacheFile{
		Token:        c.token,
		TokenExpires: c.tokenExpires.Unix(),
	})
	if err := os.WriteFile(c.tokenCachePath, data, 0600); err != nil {
		logger.Warn().Err(err).Msg("写入令牌缓存失败")
	}
}

// request 发送带令牌的请求并返回响应体
func (c *Client) request(method, endpoint string, body interface{}) ([]byte, error) {
	return c.doRequest(method, endpoint, body, false)
}

func (c *Client) doRequest(method, endpoint string, body interface{}, retried bool) ([]byte, error) {
	token, err := c.ensureToken()
	if err != nil {
		return nil, err
	}

	req := c.httpClient.R().
		SetHeader("token", token).
		SetHeader("Content-Type", "application/json")

	if body != nil {
		req.SetBody(body)
	}

	reqURL := c.baseURL + endpoint

	var resp *resty.Response
	switch method {
	case http.MethodGet:
		resp, err = req.Get(reqURL)
	case http.MethodPost:
		resp, err = req.Post(reqURL)
	case http.MethodPut:
		resp, err = req.Put(reqURL)
	case http.MethodDelete:
		resp, err = req.Delete(reqURL)
	default:
		return nil, fmt.Errorf("不支持的 HTTP 方法: %s", method)
	}

	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}

	// 令牌失效，作废后重新登录再试一次
	if resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden {
		if retried {
			return nil, fmt.Errorf("Schedules Direct 令牌失效且重新登录后仍被拒绝: HTTP %d", resp.StatusCode())
		}
		logger.Warn().Int("status", resp.StatusCode()).Msg("Schedules Direct 令牌失效，重新登录")
		c.invalidateToken()
		return c.doRequest(method, endpoint, body, true)
	}

	// 业务错误带在 JSON 体里；数组响应解析失败则视为成功
	var apiErr APIError
	if json.Unmarshal(resp.Body(), &apiErr) == nil && apiErr.Code != CodeOK {
		// 账户下没有任何频道列表不算错误，调用方按空列表处理
		if apiErr.Code == CodeNoLineups {
			logger.Debug().Msg("Schedules Direct 账户下暂无频道列表")
			return resp.Body(), nil
		}
		if apiErr.IsAuthError() {
			c.invalidateToken()
		}
		return nil, &apiErr
	}

	if resp.StatusCode() >= 400 {
		return nil, fmt.Errorf("Schedules Direct 请求失败: HTTP %d", resp.StatusCode())
	}

	return resp.Body(), nil
}

// GetLineups 获取账户下的频道列表
// 账户为空时返回空切片
func (c *Client) GetLineups() ([]UserLineup, error) {
	body, err := c.request(http.MethodGet, "/lineups", nil)
	if err != nil {
		return nil, err
	}

	var result lineupsEnvelope
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("解析频道列表失败: %w", err)
	}
	return result.Lineups, nil
}

// GetLineupStations 获取频道列表下的电视台与频道号映射
func (c *Client) GetLineupStations(lineupID string) (*LineupStationsResponse, error) {
	body, err := c.request(http.MethodGet, "/lineups/"+lineupID, nil)
	if err != nil {
		return nil, err
	}

	var result LineupStationsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("解析电视台列表失败: %w", err)
	}
	return &result, nil
}

// GetScheduleMD5s 获取电视台节目表的逐日内容哈希
func (c *Client) GetScheduleMD5s(stationIDs []string) (ScheduleMD5Response, error) {
	if len(stationIDs) == 0 {
		return ScheduleMD5Response{}, nil
	}
	if len(stationIDs) > MaxBatchSize {
		return nil, fmt.Errorf("单次请求电视台数量超过上限 %d: %d", MaxBatchSize, len(stationIDs))
	}

	payload := make([]map[string]string, 0, len(stationIDs))
	for _, id := range stationIDs {
		payload = append(payload, map[string]string{"stationID": id})
	}

	body, err := c.request(http.MethodPost, "/schedules/md5", payload)
	if err != nil {
		return nil, err
	}

	var result ScheduleMD5Response
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("解析节目表哈希失败: %w", err)
	}
	return result, nil
}

// GetSchedules 获取电视台指定日期的节目表
// 电视台-日期组合数不得超过 MaxBatchSize，调用方负责分批
func (c *Client) GetSchedules(requests []ScheduleRequest) ([]StationSchedule, error) {
	if len(requests) == 0 {
		return nil, nil
	}

	entries := 0
	for _, r := range requests {
		entries += len(r.Dates)
	}
	if entries > MaxBatchSize {
		return nil, fmt.Errorf("单次请求条目数量超过上限 %d: %d", MaxBatchSize, entries)
	}

	body, err := c.request(http.MethodPost, "/schedules", requests)
	if err != nil {
		return nil, err
	}

	var result []StationSchedule
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("解析节目表失败: %w", err)
	}
	return result, nil
}

// GetPrograms 批量获取节目元数据
// 节目 ID 数量不得超过 MaxBatchSize，调用方负责分批
func (c *Client) GetPrograms(programIDs []string) ([]ProgramInfo, error) {
	if len(programIDs) == 0 {
		return nil, nil
	}
	if len(programIDs) > MaxBatchSize {
		return nil, fmt.Errorf("单次请求节目数量超过上限 %d: %d", MaxBatchSize, len(programIDs))
	}

	body, err := c.request(http.MethodPost, "/programs", programIDs)
	if err != nil {
		return nil, err
	}

	var result []ProgramInfo
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("解析节目元数据失败: %w", err)
	}
	return result, nil
}

// GetHeadends 按国家和邮编搜索信号前端
func (c *Client) GetHeadends(country, postalCode string) ([]Headend, error) {
	endpoint := fmt.Sprintf("/headends?country=%s&postalcode=%s",
		url.QueryEscape(country), url.QueryEscape(postalCode))

	body, err := c.request(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var result []Headend
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("解析前端搜索结果失败: %w", err)
	}
	return result, nil
}

// AddLineup 向账户添加频道列表
func (c *Client) AddLineup(lineupID string) (*ChangeLineupResponse, error) {
	body, err := c.request(http.MethodPut, "/lineups/"+lineupID, nil)
	if err != nil {
		return nil, err
	}

	var result ChangeLineupResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("解析添加结果失败: %w", err)
	}

	logger.Info().Str("lineup", lineupID).Int("changes_remaining", result.ChangesRemaining).Msg("频道列表已添加")
	return &result, nil
}

// DeleteLineup 从账户删除频道列表
func (c *Client) DeleteLineup(lineupID string) (*ChangeLineupResponse, error) {
	body, err := c.request(http.MethodDelete, "/lineups/"+lineupID, nil)
	if err != nil {
		return nil, err
	}

	var result ChangeLineupResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("解析删除结果失败: %w", err)
	}

	logger.Info().Str("lineup", lineupID).Msg("频道列表已删除")
	return &result, nil
}

// Package notify Telegram 结果通知
package notify

import (
	"fmt"
	"path/filepath"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/smysle/sakura-dvr-go/internal/config"
	"github.com/smysle/sakura-dvr-go/pkg/logger"
	"github.com/smysle/sakura-dvr-go/pkg/utils"
)

// Notifier Telegram 通知器
// 未启用时为 nil，所有方法对 nil 接收者安全
type Notifier struct {
	bot    *tele.Bot
	chatID int64
}

// New 创建通知器，未启用或初始化失败返回 nil
func New(cfg *config.TelegramConfig) *Notifier {
	if !cfg.Enabled || cfg.BotToken == "" {
		return nil
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.BotToken,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		logger.Error().Err(err).Msg("初始化 Telegram Bot 失败，通知功能关闭")
		return nil
	}

	logger.Info().Int64("chat_id", cfg.ChatID).Msg("Telegram 通知已启用")
	return &Notifier{bot: bot, chatID: cfg.ChatID}
}

// send 发送消息，失败只记日志
func (n *Notifier) send(text string) {
	if n == nil || n.bot == nil || n.chatID == 0 {
		return
	}
	if _, err := n.bot.Send(&tele.Chat{ID: n.chatID}, text, tele.ModeMarkdown); err != nil {
		logger.Warn().Err(err).Msg("发送 Telegram 通知失败")
	}
}

// RecordingCompleted 录制完成通知
func (n *Notifier) RecordingCompleted(title, filePath string, size int64) {
	n.send(fmt.Sprintf(
		"✅ **录制完成**\n\n节目：%s\n文件：%s\n大小：%s",
		title, filepath.Base(filePath), utils.FormatBytes(size),
	))
}

// RecordingFailed 录制失败通知
func (n *Notifier) RecordingFailed(title, errMsg string) {
	n.send(fmt.Sprintf("❌ **录制失败**\n\n节目：%s\n原因：%s", title, errMsg))
}

// SyncFailed 节目数据同步失败通知
func (n *Notifier) SyncFailed(errMsg string) {
	n.send(fmt.Sprintf("⚠️ **节目数据同步失败**\n\n%s", errMsg))
}

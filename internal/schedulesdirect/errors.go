package schedulesdirect

import "fmt"

// Schedules Direct API 错误码
const (
	CodeOK                    = 0
	CodeInvalidJSON           = 1001
	CodeTokenMissing          = 3000
	CodeInvalidUser           = 4001
	CodeTooManyLoginFailures  = 4005
	CodeAccountDisabled       = 4006
	CodeTokenExpired          = 4009
	CodeNoLineups             = 4102
	CodeLineupNotFound        = 6000
	CodeUnknownLineup         = 6001
	CodeScheduleQueued        = 7020
	CodeInvalidProgramID      = 7100
	CodeServiceOffline        = 3001
)

// codeNames 错误码到描述的映射
var codeNames = map[int]string{
	CodeInvalidJSON:          "INVALID_JSON",
	CodeTokenMissing:         "TOKEN_MISSING",
	CodeServiceOffline:       "SERVICE_OFFLINE",
	CodeInvalidUser:          "INVALID_USER",
	CodeTooManyLoginFailures: "TOO_MANY_LOGIN_FAILURES",
	CodeAccountDisabled:      "ACCOUNT_DISABLED",
	CodeTokenExpired:         "TOKEN_EXPIRED",
	CodeNoLineups:            "NO_LINEUPS",
	CodeLineupNotFound:       "LINEUP_NOT_FOUND",
	CodeUnknownLineup:        "UNKNOWN_LINEUP",
	CodeScheduleQueued:       "SCHEDULE_QUEUED",
	CodeInvalidProgramID:     "INVALID_PROGRAMID",
}

// APIError Schedules Direct 返回的业务错误
type APIError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Response string `json:"response"`
	ServerID string `json:"serverID"`
}

// Error 实现 error 接口
func (e *APIError) Error() string {
	name, ok := codeNames[e.Code]
	if !ok {
		name = "UNKNOWN"
	}
	msg := e.Message
	if msg == "" {
		msg = e.Response
	}
	return fmt.Sprintf("Schedules Direct 错误 [%d %s]: %s", e.Code, name, msg)
}

// IsAuthError 是否为凭证/令牌相关错误
func (e *APIError) IsAuthError() bool {
	switch e.Code {
	case CodeTokenMissing, CodeInvalidUser, CodeTooManyLoginFailures, CodeAccountDisabled, CodeTokenExpired:
		return true
	}
	return false
}

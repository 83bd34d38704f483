package apperrors

import (
	"errors"

	"github.com/palemoky/party-games/internal/protocol"
)

// GameError 游戏错误（房间、模块和处理器共享）
type GameError struct {
	Code    int
	Message string
}

func (e *GameError) Error() string {
	return e.Message
}

// New 创建带自定义文本的错误
func New(code int, message string) *GameError {
	return &GameError{Code: code, Message: message}
}

// CodeOf 取出错误码，非 GameError 一律视为未知错误
func CodeOf(err error) int {
	var gameErr *GameError
	if errors.As(err, &gameErr) {
		return gameErr.Code
	}
	return protocol.ErrCodeUnknown
}

// 预定义错误
var (
	ErrRoomNotFound     = &GameError{Code: protocol.ErrCodeRoomNotFound, Message: "房间不存在"}
	ErrRoomFull         = &GameError{Code: protocol.ErrCodeRoomFull, Message: "房间已满"}
	ErrNotInRoom        = &GameError{Code: protocol.ErrCodeNotInRoom, Message: "您不在房间中"}
	ErrGameStarted      = &GameError{Code: protocol.ErrCodeGameStarted, Message: "游戏已开始"}
	ErrAlreadySeated    = &GameError{Code: protocol.ErrCodeAlreadySeated, Message: "您已在房间中，不能再占用其他座位"}
	ErrUnknownGame      = &GameError{Code: protocol.ErrCodeUnknownGame, Message: "找不到该游戏类型"}
	ErrGameNotStart     = &GameError{Code: protocol.ErrCodeGameNotStart, Message: "游戏尚未开始"}
	ErrNotYourTurn      = &GameError{Code: protocol.ErrCodeNotYourTurn, Message: "还没轮到您"}
	ErrInvalidCard      = &GameError{Code: protocol.ErrCodeInvalidCard, Message: "不能出这张牌"}
	ErrCardNotInHand    = &GameError{Code: protocol.ErrCodeInvalidCard, Message: "手牌中没有这张牌"}
	ErrMustDrawFirst    = &GameError{Code: protocol.ErrCodeMustDrawFirst, Message: "请先摸牌再跳过"}
	ErrAlreadyDrawn     = &GameError{Code: protocol.ErrCodeAlreadyDrawn, Message: "本回合已经摸过牌了"}
	ErrNotHost          = &GameError{Code: protocol.ErrCodeNotHost, Message: "只有房主可以开始游戏"}
	ErrNotEnoughPlayers = &GameError{Code: protocol.ErrCodeNotEnoughPlayers, Message: "❌ 至少需要 2 人才能开始游戏"}
	ErrColorRequired    = &GameError{Code: protocol.ErrCodeColorRequired, Message: "请选择万能牌的颜色"}
	ErrCannotChallenge  = &GameError{Code: protocol.ErrCodeCannotChallenge, Message: "无法挑战该玩家"}
	ErrInvalidRow       = &GameError{Code: protocol.ErrCodeInvalidRow, Message: "无效的行号"}
	ErrUnknownAction    = &GameError{Code: protocol.ErrCodeUnknownAction, Message: "未知的游戏操作"}
	ErrInvalidPayload   = &GameError{Code: protocol.ErrCodeInvalidMsg, Message: "无效的消息格式"}
	ErrMaintenance      = &GameError{Code: protocol.ErrCodeServerMaintenance, Message: "服务器维护中，暂停加入房间"}
)

package protocol

// 错误码
const (
	ErrCodeUnknown           = 1000
	ErrCodeInvalidMsg        = 1001
	ErrCodeRateLimit         = 1002 // 速率限制
	ErrCodeRoomNotFound      = 2001
	ErrCodeRoomFull          = 2002
	ErrCodeNotInRoom         = 2003
	ErrCodeGameStarted       = 2004 // 游戏已开始
	ErrCodeUnknownGame       = 2005 // 未知游戏类型
	ErrCodeUsernameTaken     = 2006
	ErrCodeAlreadySeated     = 2007 // 同一连接已占用其他座位
	ErrCodeGameNotStart      = 3001
	ErrCodeNotYourTurn       = 3002
	ErrCodeInvalidCard       = 3003 // 手牌中没有该牌 / 不能出这张牌
	ErrCodeMustDrawFirst     = 3004
	ErrCodeAlreadyDrawn      = 3005
	ErrCodeNotHost           = 3006
	ErrCodeNotEnoughPlayers  = 3007
	ErrCodeColorRequired     = 3008
	ErrCodeCannotChallenge   = 3009
	ErrCodeInvalidGuess      = 3010
	ErrCodeInvalidRow        = 3011
	ErrCodeUnknownAction     = 3012
	ErrCodeServerMaintenance = 5003 // 服务器维护中
)

// ErrorMessages 错误码对应的消息
var ErrorMessages = map[int]string{
	ErrCodeUnknown:           "未知错误",
	ErrCodeInvalidMsg:        "无效的消息格式",
	ErrCodeRateLimit:         "请求过于频繁",
	ErrCodeRoomNotFound:      "房间不存在",
	ErrCodeRoomFull:          "房间已满",
	ErrCodeNotInRoom:         "您不在房间中",
	ErrCodeGameStarted:       "游戏已开始",
	ErrCodeUnknownGame:       "找不到该游戏类型",
	ErrCodeUsernameTaken:     "此昵称已被其他在线玩家使用",
	ErrCodeAlreadySeated:     "您已在房间中",
	ErrCodeGameNotStart:      "游戏尚未开始",
	ErrCodeNotYourTurn:       "还没轮到您",
	ErrCodeInvalidCard:       "不能出这张牌",
	ErrCodeMustDrawFirst:     "请先摸牌再跳过",
	ErrCodeAlreadyDrawn:      "本回合已经摸过牌了",
	ErrCodeNotHost:           "只有房主可以开始游戏",
	ErrCodeNotEnoughPlayers:  "至少需要 2 人才能开始游戏",
	ErrCodeColorRequired:     "请选择万能牌的颜色",
	ErrCodeCannotChallenge:   "无法挑战该玩家",
	ErrCodeInvalidGuess:      "无效的猜测",
	ErrCodeInvalidRow:        "无效的行号",
	ErrCodeUnknownAction:     "未知的游戏操作",
	ErrCodeServerMaintenance: "服务器维护中",
}

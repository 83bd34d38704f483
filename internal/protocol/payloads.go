package protocol

import "encoding/json"

// --- 客户端请求 Payloads ---

// PingPayload 心跳请求
type PingPayload struct {
	Timestamp int64 `json:"timestamp"` // 客户端时间戳（毫秒）
}

// ValidateUsernamePayload 昵称校验请求
type ValidateUsernamePayload struct {
	Username string `json:"username"`
}

// JoinRoomPayload 加入房间请求，房间不存在时按 GameType 创建
type JoinRoomPayload struct {
	RoomID   string `json:"roomId"`
	AnchorID string `json:"anchorId"` // 客户端生成的稳定身份，断线重连靠它找回座位
	Username string `json:"username"`
	GameType string `json:"gameType"`
	Color    string `json:"color,omitempty"`
	DrawTime int    `json:"drawTime,omitempty"`
}

// LeaveRoomPayload 离开房间请求
type LeaveRoomPayload struct {
	RoomID   string `json:"roomId"`
	AnchorID string `json:"anchorId"`
}

// GameActionPayload 统一的游戏操作信封
type GameActionPayload struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// UploadImagePayload 上传本回合画作（data URL）
type UploadImagePayload struct {
	ImageBase64 string `json:"imageBase64"`
}

// GetLeaderboardPayload 获取排行榜请求
type GetLeaderboardPayload struct {
	GameType string `json:"gameType"`
	Limit    int    `json:"limit"`
}

// GetHistoryPayload 获取对局记录请求
type GetHistoryPayload struct {
	Limit int `json:"limit"`
}

// --- 服务端响应 Payloads ---

// ConnectedPayload 连接成功响应
type ConnectedPayload struct {
	ConnectionID string `json:"connectionId"`
}

// PongPayload 心跳响应
type PongPayload struct {
	ClientTimestamp int64 `json:"client_timestamp"` // 客户端发送的时间戳
	ServerTimestamp int64 `json:"server_timestamp"` // 服务器时间戳（毫秒）
}

// ValidateUsernameResult 昵称校验结果
type ValidateUsernameResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// RoomListItem 房间列表项
type RoomListItem struct {
	ID          string   `json:"id"`
	GameType    string   `json:"gameType"`
	GameName    string   `json:"gameName"`
	PlayerCount int      `json:"playerCount"`
	MaxPlayers  int      `json:"maxPlayers"`
	Phase       string   `json:"phase"`
	TakenColors []string `json:"takenColors"`
	Settings    any      `json:"settings,omitempty"`
}

// RoomDataPayload 发给某位观察者的房间快照
type RoomDataPayload struct {
	ID        string       `json:"id"`
	GameType  string       `json:"gameType"`
	GameName  string       `json:"gameName"`
	Phase     string       `json:"phase"`
	TimeLeft  int          `json:"timeLeft"`
	Settings  any          `json:"settings,omitempty"`
	GameState any          `json:"gameState,omitempty"`
	Players   []PlayerView `json:"players"`
}

// PlayerView 快照中的玩家信息，Game 字段由游戏模块按可见性生成
type PlayerView struct {
	ID            string `json:"id"`
	AnchorID      string `json:"anchorId"`
	Username      string `json:"username"`
	Color         string `json:"color"`
	Score         int    `json:"score"`
	IsDoneDrawing bool   `json:"isDoneDrawing"`
	Disconnected  bool   `json:"disconnected"`
	Game          any    `json:"game,omitempty"`
}

// TimerUpdatePayload 倒计时
type TimerUpdatePayload struct {
	SecondsLeft int `json:"secondsLeft"`
}

// ClearCanvasPayload 某位玩家清空了画布
type ClearCanvasPayload struct {
	PlayerID string `json:"playerId"`
}

// UpdateCanvasPayload 某位画者本回合的完整画作
type UpdateCanvasPayload struct {
	PlayerID    string `json:"playerId"`
	ImageBase64 string `json:"imageBase64"`
}

// ToastPayload 用户提示
type ToastPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ErrorPayload 错误响应
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Rank     int     `json:"rank"`
	AnchorID string  `json:"anchorId"`
	Username string  `json:"username"`
	Score    int     `json:"score"`
	Wins     int     `json:"wins"`
	WinRate  float64 `json:"winRate"`
}

// LeaderboardResultPayload 排行榜结果
type LeaderboardResultPayload struct {
	GameType string             `json:"gameType"`
	Entries  []LeaderboardEntry `json:"entries"`
}

// MatchRecord 一局结束后的记录
type MatchRecord struct {
	ID         int64    `json:"id"`
	RoomID     string   `json:"roomId"`
	GameType   string   `json:"gameType"`
	GameName   string   `json:"gameName"`
	WinnerName string   `json:"winnerName"`
	Players    []string `json:"players"`
	FinishedAt int64    `json:"finishedAt"` // 毫秒
}

// HistoryResultPayload 对局记录
type HistoryResultPayload struct {
	Records []MatchRecord `json:"records"`
}

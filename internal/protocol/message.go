package protocol

import "encoding/json"

// Message 基础消息结构
type Message struct {
	Type    MessageType     `json:"type"`
	ID      string          `json:"id,omitempty"` // 请求关联 ID，回复时原样带回
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageType 消息类型
type MessageType string

// 客户端 → 服务端 消息类型
const (
	// 连接操作
	MsgPing             MessageType = "ping"              // 心跳 ping
	MsgValidateUsername MessageType = "validate_username" // 校验昵称

	// 房间操作
	MsgJoinRoom  MessageType = "join_room"  // 加入（或创建）房间
	MsgLeaveRoom MessageType = "leave_room" // 离开房间

	// 游戏操作（统一信封）
	MsgGameAction MessageType = "game_action"

	// 画布中继（妙笔神猜），服务端原样转发给房间内其他人
	MsgDraw        MessageType = "draw"         // 笔画
	MsgClearCanvas MessageType = "clear_canvas" // 清空画布

	// 信息查询
	MsgGetRoomList    MessageType = "get_room_list"   // 获取房间列表
	MsgGetLeaderboard MessageType = "get_leaderboard" // 获取排行榜
	MsgGetHistory     MessageType = "get_history"     // 获取对局记录
)

// LegacyActions 旧版客户端直接以动作名作为消息类型发送的游戏操作
var LegacyActions = []string{
	"start_game",
	"player_finish_drawing",
	"guess_word",
	"player_finish_guessing",
	"upload_image",
	"next_round",
	"play_card",
	"draw_card",
	"pass_turn",
	"call_uno",
	"challenge_uno",
	"get_hand",
	"update_settings",
	"choose_row",
	"get_state",
}

// 服务端 → 客户端 消息类型
const (
	// 连接相关
	MsgConnected              MessageType = "connected"                // 连接成功
	MsgPong                   MessageType = "pong"                     // 心跳 pong
	MsgValidateUsernameResult MessageType = "validate_username_result" // 昵称校验结果

	// 房间相关
	MsgRoomList    MessageType = "room_list"    // 房间列表
	MsgRoomData    MessageType = "room_data"    // 房间快照（按观察者过滤）
	MsgTimerUpdate MessageType = "timer_update" // 倒计时
	MsgToast       MessageType = "toast"        // 用户提示

	// 游戏私有/专属事件
	MsgHandUpdate   MessageType = "hand_update"   // UNO 手牌（仅本人）
	MsgUnoShouted   MessageType = "uno_shouted"   // 有人喊了 UNO
	MsgGameStarted  MessageType = "game_started"  // Pictomania 开局词卡
	MsgUpdateState  MessageType = "update_state"  // Take6 私有视图
	MsgUpdateCanvas MessageType = "update_canvas" // Pictomania 画作上传完成

	// 排行榜
	MsgLeaderboardResult MessageType = "leaderboard_result"
	MsgHistoryResult     MessageType = "history_result"

	// 错误
	MsgError MessageType = "error"
)

// 提示类型
const (
	ToastInfo    = "info"
	ToastSuccess = "success"
	ToastWarning = "warning"
	ToastError   = "error"
)

package server

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/palemoky/party-games/internal/protocol"
	"github.com/palemoky/party-games/internal/protocol/codec"
)

const (
	// 写入超时
	writeWait = 10 * time.Second

	// 读取超时（pong 等待时间）
	pongWait = 60 * time.Second

	// ping 发送间隔（必须小于 pongWait）
	pingPeriod = (pongWait * 9) / 10

	// 消息最大大小
	maxMessageSize = 16 * 1024

	// 超速警告超过该次数后断开连接
	maxRateWarnings = 5
)

// Client 一个 WebSocket 连接，ID 即玩家在房间里的连接 ID
type Client struct {
	ID     string
	IP     string
	format codec.Format

	server *Server
	conn   *websocket.Conn
	send   chan []byte

	mu     sync.RWMutex
	roomID string
	closed bool
}

// NewClient 创建新客户端
func NewClient(s *Server, conn *websocket.Conn, ip string, format codec.Format) *Client {
	return &Client{
		ID:     uuid.New().String(),
		IP:     ip,
		format: format,
		server: s,
		conn:   conn,
		send:   make(chan []byte, 256),
	}
}

func (c *Client) GetID() string { return c.ID }
func (c *Client) GetIP() string { return c.IP }

// GetRoom 当前所在房间
func (c *Client) GetRoom() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}

// SetRoom 设置当前所在房间
func (c *Client) SetRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = roomID
}

// ReadPump 读取并分发消息，返回时连接已断开
func (c *Client) ReadPump() {
	defer func() {
		c.handleDisconnect()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("读取错误: %v", err)
			}
			return
		}

		allowed, warning := c.server.messageLimiter.AllowMessage(c.ID)
		if !allowed {
			c.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeRateLimit, "消息发送过于频繁"))
			if c.server.messageLimiter.GetWarningCount(c.ID) > maxRateWarnings {
				log.Printf("🚫 客户端 %s (IP: %s) 因多次超速被断开连接", c.ID, c.IP)
				return
			}
			continue
		}
		if warning {
			c.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeRateLimit, "请求过于频繁，请放慢速度"))
		}

		msg, err := codec.DecodeAs(c.format, data)
		if err != nil {
			log.Printf("消息解析错误: %v", err)
			c.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
			continue
		}

		c.server.handler.Handle(c, msg)
	}
}

// WritePump 把发送队列写入连接，并定时发送 ping
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	frameType := websocket.TextMessage
	if c.format == codec.FormatProto {
		frameType = websocket.BinaryMessage
	}

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(frameType, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage 按协商的编码发送消息，缓冲区满时关闭连接
func (c *Client) SendMessage(msg *protocol.Message) {
	data, err := codec.EncodeAs(c.format, msg)
	if err != nil {
		log.Printf("消息编码错误: %v", err)
		return
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		log.Printf("客户端 %s 发送缓冲区已满", c.ID)
		go c.Close()
	}
}

// handleDisconnect 连接断开：通知房间（玩家只标记掉线）并注销
func (c *Client) handleDisconnect() {
	c.server.handler.HandleDisconnect(c)
	c.server.messageLimiter.ClearRateLimit(c.ID)
	c.server.unregisterClient(c)
}

// Close 关闭发送队列，WritePump 随后关闭连接
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

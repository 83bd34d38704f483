package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/palemoky/party-games/internal/protocol"
)

// Format 线路编码格式
type Format int

const (
	FormatJSON  Format = iota // 文本帧，JSON
	FormatProto               // 二进制帧，protobuf Struct
)

// ParseFormat 根据连接参数选择编码，未知值回落到 JSON
func ParseFormat(s string) Format {
	if s == "proto" || s == "protobuf" {
		return FormatProto
	}
	return FormatJSON
}

var errMissingType = errors.New("消息缺少 type 字段")

// NewMessage 创建一个新消息，payload 以 JSON 编码
func NewMessage(msgType protocol.MessageType, payload any) (*protocol.Message, error) {
	msg := &protocol.Message{Type: msgType}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("编码 %s 消息失败: %w", msgType, err)
		}
		msg.Payload = data
	}
	return msg, nil
}

// MustNewMessage 创建消息，失败时 panic
func MustNewMessage(msgType protocol.MessageType, payload any) *protocol.Message {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		panic(err)
	}
	return msg
}

// NewReply 创建带请求关联 ID 的回复
func NewReply(id string, msgType protocol.MessageType, payload any) *protocol.Message {
	msg := MustNewMessage(msgType, payload)
	msg.ID = id
	return msg
}

// Encode 将消息编码为 JSON 字节
func Encode(m *protocol.Message) ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}

	// Encoder 会追加换行
	out := make([]byte, buf.Len()-1)
	copy(out, buf.Bytes())
	return out, nil
}

// Decode 从 JSON 字节解码消息
// 注意: 使用完毕后应调用 PutMessage 归还对象到池
func Decode(data []byte) (*protocol.Message, error) {
	msg := GetMessage()
	if err := json.Unmarshal(data, msg); err != nil {
		PutMessage(msg)
		return nil, err
	}
	if msg.Type == "" {
		PutMessage(msg)
		return nil, errMissingType
	}
	return msg, nil
}

// EncodeBinary 将消息编码为 protobuf Struct 字节
func EncodeBinary(m *protocol.Message) ([]byte, error) {
	fields := map[string]any{"type": string(m.Type)}
	if m.ID != "" {
		fields["id"] = m.ID
	}
	if len(m.Payload) > 0 {
		var payload any
		if err := json.Unmarshal(m.Payload, &payload); err != nil {
			return nil, fmt.Errorf("payload 不是合法 JSON: %w", err)
		}
		fields["payload"] = payload
	}

	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(st)
}

// DecodeBinary 从 protobuf Struct 字节解码消息
// 注意: 使用完毕后应调用 PutMessage 归还对象到池
func DecodeBinary(data []byte) (*protocol.Message, error) {
	st := GetPBStruct()
	defer PutPBStruct(st)

	if err := proto.Unmarshal(data, st); err != nil {
		return nil, err
	}

	msgType := st.GetFields()["type"].GetStringValue()
	if msgType == "" {
		return nil, errMissingType
	}

	msg := GetMessage()
	msg.Type = protocol.MessageType(msgType)
	msg.ID = st.GetFields()["id"].GetStringValue()

	if payload, ok := st.GetFields()["payload"]; ok {
		raw, err := json.Marshal(payload.AsInterface())
		if err != nil {
			PutMessage(msg)
			return nil, err
		}
		msg.Payload = raw
	}
	return msg, nil
}

// EncodeAs 按指定格式编码
func EncodeAs(format Format, m *protocol.Message) ([]byte, error) {
	if format == FormatProto {
		return EncodeBinary(m)
	}
	return Encode(m)
}

// DecodeAs 按指定格式解码
func DecodeAs(format Format, data []byte) (*protocol.Message, error) {
	if format == FormatProto {
		return DecodeBinary(data)
	}
	return Decode(data)
}

// ParsePayload 解析消息的 Payload 到指定类型
func ParsePayload[T any](msg *protocol.Message) (*T, error) {
	return ParseData[T](msg.Payload)
}

// ParseData 解析原始 JSON 数据到指定类型，空数据得到零值
func ParseData[T any](data json.RawMessage) (*T, error) {
	var payload T
	if len(data) == 0 || string(data) == "null" {
		return &payload, nil
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// NewErrorMessage 创建错误消息
func NewErrorMessage(code int) *protocol.Message {
	return MustNewMessage(protocol.MsgError, protocol.ErrorPayload{
		Code:    code,
		Message: protocol.ErrorMessages[code],
	})
}

// NewErrorMessageWithText 创建带自定义文本的错误消息
func NewErrorMessageWithText(code int, text string) *protocol.Message {
	return MustNewMessage(protocol.MsgError, protocol.ErrorPayload{
		Code:    code,
		Message: text,
	})
}

// NewToast 创建提示消息
func NewToast(kind, text string) *protocol.Message {
	return MustNewMessage(protocol.MsgToast, protocol.ToastPayload{Type: kind, Message: text})
}

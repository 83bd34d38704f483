package codec

import (
	"bytes"
	"sync"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/palemoky/party-games/internal/protocol"
)

// Message pools for reducing GC pressure
var (
	messagePool = sync.Pool{
		New: func() any {
			return &protocol.Message{}
		},
	}

	pbStructPool = sync.Pool{
		New: func() any {
			return &structpb.Struct{}
		},
	}

	bufferPool = sync.Pool{
		New: func() any {
			return new(bytes.Buffer)
		},
	}
)

// GetMessage retrieves a Message from the pool
func GetMessage() *protocol.Message {
	return messagePool.Get().(*protocol.Message)
}

// PutMessage returns a Message to the pool
// The message fields are reset to prevent memory leaks
func PutMessage(msg *protocol.Message) {
	if msg == nil {
		return
	}
	msg.Type = ""
	msg.ID = ""
	msg.Payload = nil
	messagePool.Put(msg)
}

// GetPBStruct retrieves a structpb.Struct from the pool
func GetPBStruct() *structpb.Struct {
	return pbStructPool.Get().(*structpb.Struct)
}

// PutPBStruct returns a structpb.Struct to the pool
func PutPBStruct(st *structpb.Struct) {
	if st == nil {
		return
	}
	st.Reset()
	pbStructPool.Put(st)
}

// GetBuffer retrieves a bytes.Buffer from the pool
func GetBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

// PutBuffer returns a bytes.Buffer to the pool
// The buffer is reset but capacity is preserved
func PutBuffer(buf *bytes.Buffer) {
	if buf == nil {
		return
	}
	buf.Reset()
	bufferPool.Put(buf)
}

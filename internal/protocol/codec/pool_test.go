package codec

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/palemoky/party-games/internal/protocol"
)

func TestMessagePool_PutResetsFields(t *testing.T) {
	t.Parallel()

	msg := GetMessage()
	assert.NotNil(t, msg)

	msg.Type = "test"
	msg.ID = "req-1"
	msg.Payload = []byte("data")

	PutMessage(msg)

	assert.Empty(t, msg.Type)
	assert.Empty(t, msg.ID)
	assert.Nil(t, msg.Payload)
}

func TestMessagePool_PutNil(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		PutMessage(nil)
		PutPBStruct(nil)
		PutBuffer(nil)
	})
}

func TestPBStructPool_PutResets(t *testing.T) {
	t.Parallel()

	st := GetPBStruct()
	assert.NotNil(t, st)
	st.Fields = map[string]*structpb.Value{"type": structpb.NewStringValue("ping")}

	PutPBStruct(st)

	assert.Empty(t, st.GetFields())
}

func TestBufferPool_GetPut(t *testing.T) {
	t.Parallel()

	buf := GetBuffer()
	buf.WriteString("hello")
	assert.Equal(t, 5, buf.Len())

	PutBuffer(buf)
	assert.Equal(t, 0, buf.Len())
}

func TestMessagePool_Concurrency(t *testing.T) {
	t.Parallel()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg := GetMessage()
			msg.Type = protocol.MsgPing
			PutMessage(msg)
		}()
	}
	wg.Wait()
}

func BenchmarkMessagePool_GetPut(b *testing.B) {
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			msg := GetMessage()
			msg.Type = "benchmark"
			msg.Payload = []byte("test")
			PutMessage(msg)
		}
	})
}

func BenchmarkBufferPool_GetPut(b *testing.B) {
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			buf := GetBuffer()
			buf.WriteString("benchmark test data")
			PutBuffer(buf)
		}
	})
}

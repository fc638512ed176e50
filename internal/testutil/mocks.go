package testutil

import (
	"bytes"
	"net"
	"sync"
	"time"

	"github.com/udisondev/tictac/internal/protocol"
)

// MockConn — mock для net.Conn, используется в unit тестах. Write
// накапливает байты; Frames разбирает накопленное обратно в пакеты.
// Потокобезопасен: нотификации пишут в сокет из чужих горутин.
type MockConn struct {
	mu       sync.Mutex
	writeBuf []byte
	closed   bool
}

// NewMockConn создаёт новый MockConn экземпляр.
func NewMockConn() *MockConn {
	return &MockConn{}
}

// Read всегда сообщает конец потока.
func (m *MockConn) Read(b []byte) (int, error) {
	return 0, net.ErrClosed
}

// Write записывает данные в writeBuf.
func (m *MockConn) Write(b []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, net.ErrClosed
	}
	m.writeBuf = append(m.writeBuf, b...)
	return len(b), nil
}

// Frames разбирает все записанные на текущий момент фреймы.
func (m *MockConn) Frames() []Frame {
	m.mu.Lock()
	buf := make([]byte, len(m.writeBuf))
	copy(buf, m.writeBuf)
	m.mu.Unlock()

	var frames []Frame
	r := bytes.NewReader(buf)
	for r.Len() > 0 {
		hdr, payload, err := protocol.ReadPacket(r)
		if err != nil {
			break
		}
		frames = append(frames, Frame{Header: hdr, Payload: payload})
	}
	return frames
}

// Close помечает соединение закрытым; последующие Write падают.
func (m *MockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockConn) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 7777}
}

func (m *MockConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(192, 168, 1, 100), Port: 12345}
}

func (m *MockConn) SetDeadline(t time.Time) error      { return nil }
func (m *MockConn) SetReadDeadline(t time.Time) error  { return nil }
func (m *MockConn) SetWriteDeadline(t time.Time) error { return nil }

// Frame — один разобранный пакет, как его увидел бы клиент.
type Frame struct {
	Header  protocol.Header
	Payload []byte
}

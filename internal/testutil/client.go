package testutil

import (
	"net"
	"testing"
	"time"

	"github.com/udisondev/tictac/internal/protocol"
)

// Client — тестовый клиент, говорящий на wire-протоколе сервера поверх
// TCP-соединения.
type Client struct {
	t    testing.TB
	conn net.Conn
}

// Dial подключается к серверу по TCP.
func Dial(t testing.TB, addr string) *Client {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dialing %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &Client{t: t, conn: conn}
}

// Send отправляет один запрос серверу.
func (c *Client) Send(typ protocol.Type, id, role uint8, payload []byte) {
	c.t.Helper()
	hdr := protocol.Header{Type: typ, ID: id, Role: role}
	if err := protocol.WritePacket(c.conn, hdr, payload); err != nil {
		c.t.Fatalf("sending %s: %v", typ, err)
	}
}

// Recv читает следующий фрейм с дедлайном.
func (c *Client) Recv() (protocol.Header, []byte) {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	hdr, payload, err := protocol.ReadPacket(c.conn)
	if err != nil {
		c.t.Fatalf("receiving packet: %v", err)
	}
	return hdr, payload
}

// Expect читает следующий фрейм и проверяет его тип.
func (c *Client) Expect(typ protocol.Type) (protocol.Header, []byte) {
	c.t.Helper()
	hdr, payload := c.Recv()
	if hdr.Type != typ {
		c.t.Fatalf("received %s, want %s (payload %q)", hdr.Type, typ, payload)
	}
	return hdr, payload
}

// Request отправляет запрос и возвращает синхронный ответ на него.
func (c *Client) Request(typ protocol.Type, id, role uint8, payload []byte) (protocol.Header, []byte) {
	c.t.Helper()
	c.Send(typ, id, role, payload)
	return c.Recv()
}

// Login логинит клиента под именем name и требует ACK.
func (c *Client) Login(name string) {
	c.t.Helper()
	hdr, _ := c.Request(protocol.TypeLogin, 0, 0, []byte(name))
	if hdr.Type != protocol.TypeAck {
		c.t.Fatalf("login %q: got %s, want ACK", name, hdr.Type)
	}
}

// Close закрывает клиентскую сторону соединения.
func (c *Client) Close() {
	_ = c.conn.Close()
}

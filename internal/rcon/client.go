// Package rcon implements the Source-compatible remote console protocol
// used to execute commands on the game server: little-endian length-framed
// packets over TCP, password auth, then exec-command requests.
package rcon

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync/atomic"
	"time"
)

const (
	packetTypeAuth         = 3
	packetTypeAuthResponse = 2
	packetTypeExecCommand  = 2
	packetTypeResponse     = 0

	// body + two trailing NULs must fit; the server rejects larger frames.
	maxPacketSize = 4096
)

var (
	ErrAuthFailed  = errors.New("rcon authentication failed")
	ErrPacketSize  = errors.New("rcon packet too large")
	ErrUnreachable = errors.New("rcon server unreachable")
)

type packet struct {
	id   int32
	typ  int32
	body string
}

func encodePacket(p packet) ([]byte, error) {
	size := 4 + 4 + len(p.body) + 2
	if size > maxPacketSize {
		return nil, ErrPacketSize
	}
	buf := bytes.NewBuffer(make([]byte, 0, 4+size))
	binary.Write(buf, binary.LittleEndian, int32(size))
	binary.Write(buf, binary.LittleEndian, p.id)
	binary.Write(buf, binary.LittleEndian, p.typ)
	buf.WriteString(p.body)
	buf.Write([]byte{0, 0})
	return buf.Bytes(), nil
}

func decodePacket(r io.Reader) (packet, error) {
	var size int32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return packet{}, err
	}
	if size < 10 || size > maxPacketSize {
		return packet{}, ErrPacketSize
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return packet{}, err
	}
	p := packet{
		id:  int32(binary.LittleEndian.Uint32(payload[0:4])),
		typ: int32(binary.LittleEndian.Uint32(payload[4:8])),
	}
	p.body = string(bytes.TrimRight(payload[8:], "\x00"))
	return p, nil
}

// Client sends one command per connection: dial, authenticate, exec, close.
// The game server tears down idle consoles aggressively, so a persistent
// connection buys nothing.
type Client struct {
	addr     string
	password string
	timeout  time.Duration
	log      *slog.Logger
	seq      atomic.Int32
}

func NewClient(addr, password string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		addr:     addr,
		password: password,
		timeout:  10 * time.Second,
		log:      logger,
	}
}

// Send executes a single command on the game server. Any failure (dial,
// auth, write, read) is reported as an error; callers treat all of them as
// transient.
func (c *Client) Send(ctx context.Context, command string) error {
	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return err
	}

	authID := c.seq.Add(1)
	if err := c.write(conn, packet{id: authID, typ: packetTypeAuth, body: c.password}); err != nil {
		return fmt.Errorf("rcon auth write: %w", err)
	}
	// Some servers echo an empty response packet before the auth response.
	for {
		resp, err := decodePacket(conn)
		if err != nil {
			return fmt.Errorf("rcon auth read: %w", err)
		}
		if resp.typ != packetTypeAuthResponse {
			continue
		}
		if resp.id == -1 {
			return ErrAuthFailed
		}
		break
	}

	execID := c.seq.Add(1)
	if err := c.write(conn, packet{id: execID, typ: packetTypeExecCommand, body: command}); err != nil {
		return fmt.Errorf("rcon exec write: %w", err)
	}
	resp, err := decodePacket(conn)
	if err != nil {
		return fmt.Errorf("rcon exec read: %w", err)
	}
	c.log.Debug("rcon command executed", "addr", c.addr, "response", resp.body)
	return nil
}

func (c *Client) write(conn net.Conn, p packet) error {
	raw, err := encodePacket(p)
	if err != nil {
		return err
	}
	_, err = conn.Write(raw)
	return err
}

// Package mcping implements the Minecraft Server List Ping handshake:
// enough of the protocol to ask a server who it is and who is online.
package mcping

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

const (
	// protocolStatus asks for a status response without joining.
	protocolStatus = 1
	// maxResponseLen bounds the status payload; real responses are a few KB.
	maxResponseLen = 1 << 21
)

// Description is the server MOTD. Servers send either a bare JSON string
// or a chat component object; both decode to the flat text.
type Description struct {
	Text string
}

func (d *Description) UnmarshalJSON(raw []byte) error {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		d.Text = s
		return nil
	}
	var component struct {
		Text  string `json:"text"`
		Extra []struct {
			Text string `json:"text"`
		} `json:"extra"`
	}
	if err := json.Unmarshal(raw, &component); err != nil {
		return fmt.Errorf("decode description: %w", err)
	}
	d.Text = component.Text
	for _, e := range component.Extra {
		d.Text += e.Text
	}
	return nil
}

// Status is the decoded server list ping response.
type Status struct {
	Version struct {
		Name     string `json:"name"`
		Protocol int    `json:"protocol"`
	} `json:"version"`
	Players struct {
		Max    int `json:"max"`
		Online int `json:"online"`
		Sample []struct {
			Name string `json:"name"`
		} `json:"sample"`
	} `json:"players"`
	Description Description `json:"description"`
}

// Ping performs the status handshake against host:port. The context
// bounds the whole exchange, including the dial.
func Ping(ctx context.Context, host string, port int) (*Status, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("dial game server: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	}

	if err := writePacket(conn, handshakePacket(host, port)); err != nil {
		return nil, fmt.Errorf("send handshake: %w", err)
	}
	// status request is an empty packet with id 0x00
	if err := writePacket(conn, []byte{0x00}); err != nil {
		return nil, fmt.Errorf("send status request: %w", err)
	}

	payload, err := readPacket(conn)
	if err != nil {
		return nil, fmt.Errorf("read status response: %w", err)
	}
	body := bytes.NewReader(payload)
	id, err := readVarInt(body)
	if err != nil {
		return nil, fmt.Errorf("read response packet id: %w", err)
	}
	if id != 0x00 {
		return nil, fmt.Errorf("unexpected status packet id 0x%02x", id)
	}
	raw, err := readString(body)
	if err != nil {
		return nil, fmt.Errorf("read status payload: %w", err)
	}

	var st Status
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("decode status payload: %w", err)
	}
	return &st, nil
}

// handshakePacket encodes packet 0x00 of the handshaking state with
// protocol version -1, which every server accepts for a status query.
func handshakePacket(host string, port int) []byte {
	var buf bytes.Buffer
	writeVarInt(&buf, 0x00)
	writeVarInt(&buf, -1)
	writeVarInt(&buf, len(host))
	buf.WriteString(host)
	_ = binary.Write(&buf, binary.BigEndian, uint16(port))
	writeVarInt(&buf, protocolStatus)
	return buf.Bytes()
}

func writePacket(w io.Writer, payload []byte) error {
	var framed bytes.Buffer
	writeVarInt(&framed, len(payload))
	framed.Write(payload)
	_, err := w.Write(framed.Bytes())
	return err
}

func readPacket(r io.Reader) ([]byte, error) {
	br := &byteReader{r: r}
	length, err := readVarInt(br)
	if err != nil {
		return nil, err
	}
	if length < 0 || length > maxResponseLen {
		return nil, fmt.Errorf("packet length %d out of range", length)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func readString(r io.ByteReader) (string, error) {
	length, err := readVarInt(r)
	if err != nil {
		return "", err
	}
	if length < 0 || length > maxResponseLen {
		return "", fmt.Errorf("string length %d out of range", length)
	}
	out := make([]byte, length)
	for i := range out {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		out[i] = b
	}
	return string(out), nil
}

func writeVarInt(buf *bytes.Buffer, v int) {
	u := uint32(v)
	for {
		b := byte(u & 0x7f)
		u >>= 7
		if u != 0 {
			b |= 0x80
		}
		buf.WriteByte(b)
		if u == 0 {
			return
		}
	}
}

func readVarInt(r io.ByteReader) (int, error) {
	var result uint32
	for i := 0; i < 5; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return int(int32(result)), nil
		}
	}
	return 0, errors.New("varint longer than 5 bytes")
}

type byteReader struct {
	r   io.Reader
	buf [1]byte
}

func (b *byteReader) ReadByte() (byte, error) {
	if _, err := io.ReadFull(b.r, b.buf[:]); err != nil {
		return 0, err
	}
	return b.buf[0], nil
}

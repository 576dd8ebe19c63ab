package udp

import (
	"encoding/json"
	"fmt"
	"net"

	"acro-ng/internal/bus"
)

type udpConn interface {
	Write(p []byte) (int, error)
	Close() error
}

type resolveFunc func(network, address string) (*net.UDPAddr, error)

type dialFunc func(network string, laddr, raddr *net.UDPAddr) (udpConn, error)

// Broadcaster sends rate commands to a fixed UDP destination, one JSON
// datagram per command.
type Broadcaster struct {
	dest string
	conn udpConn
}

func NewBroadcaster(dest string) (*Broadcaster, error) {
	return newBroadcaster(dest, net.ResolveUDPAddr, func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		return net.DialUDP(network, laddr, raddr)
	})
}

func newBroadcaster(dest string, resolve resolveFunc, dial dialFunc) (*Broadcaster, error) {
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest: %w", err)
	}

	// DialUDP selects a suitable local address automatically.
	conn, err := dial("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}
	return &Broadcaster{dest: dest, conn: conn}, nil
}

func (b *Broadcaster) Dest() string {
	if b == nil {
		return ""
	}
	return b.dest
}

func (b *Broadcaster) Send(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	if b == nil || b.conn == nil {
		return fmt.Errorf("udp: broadcaster not open")
	}
	_, err := b.conn.Write(payload)
	return err
}

// SendCommand encodes cmd as JSON and writes it as a single datagram.
func (b *Broadcaster) SendCommand(cmd bus.RateCommand) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("udp: encode command: %w", err)
	}
	return b.Send(payload)
}

func (b *Broadcaster) Close() error {
	if b == nil || b.conn == nil {
		return nil
	}
	return b.conn.Close()
}

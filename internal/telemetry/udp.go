package telemetry

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/jsm174/libaltsound/internal/log"
)

// UDP packet layout (big-endian), mirroring the teacher's
// UDPPublisher framing but carrying per-slot effective volumes
// instead of FFT magnitudes:
//
//	Sequence Number   uint32   4   monotonically increasing
//	Timestamp         int64    8   nanoseconds since epoch
//	Master Volume     float32  4
//	Global Volume     float32  4
//	Slot Count        uint16   2
//	Effective Volumes []float32 N*4

// UDPSender transmits packets to one target address.
type UDPSender struct {
	conn   *net.UDPConn
	mu     sync.Mutex
	closed bool
}

// NewUDPSender dials targetAddress ("host:port") for sending.
func NewUDPSender(targetAddress string) (*UDPSender, error) {
	addr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("telemetry: resolve UDP target %q: %w", targetAddress, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("telemetry: dial UDP target %q: %w", targetAddress, err)
	}
	return &UDPSender{conn: conn}, nil
}

// Send writes data as one UDP packet.
func (s *UDPSender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("telemetry: UDP sender closed")
	}
	_, err := s.conn.Write(data)
	return err
}

// Close releases the underlying UDP connection.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}

// UDPPublisher packs each published Snapshot into the binary frame
// above and fires it at the sender. Publish packs and sends
// synchronously on the caller's goroutine; it has no queue and does
// not drop snapshots (Broadcaster also calls it directly).
type UDPPublisher struct {
	sender *UDPSender
	logger *log.Logger

	mu          sync.Mutex
	sequenceNum uint32
	buf         *bytes.Buffer
}

// NewUDPPublisher returns a UDPPublisher writing through sender.
func NewUDPPublisher(sender *UDPSender, logger *log.Logger) *UDPPublisher {
	return &UDPPublisher{sender: sender, logger: logger, buf: new(bytes.Buffer)}
}

// Publish packs and sends one snapshot.
func (p *UDPPublisher) Publish(s Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sequenceNum++
	p.buf.Reset()

	binary.Write(p.buf, binary.BigEndian, p.sequenceNum)
	binary.Write(p.buf, binary.BigEndian, time.Now().UnixNano())
	binary.Write(p.buf, binary.BigEndian, float32(s.MasterVolume))
	binary.Write(p.buf, binary.BigEndian, float32(s.GlobalVolume))
	binary.Write(p.buf, binary.BigEndian, uint16(len(s.Slots)))
	for _, slot := range s.Slots {
		binary.Write(p.buf, binary.BigEndian, float32(slot.Effective))
	}

	if err := p.sender.Send(p.buf.Bytes()); err != nil && p.logger != nil {
		p.logger.Errorf("telemetry: UDP send: %v", err)
	}
}

// Close releases the underlying sender.
func (p *UDPPublisher) Close() error { return p.sender.Close() }

var _ Sink = (*UDPPublisher)(nil)

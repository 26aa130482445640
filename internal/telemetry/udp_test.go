package telemetry

import (
	"encoding/binary"
	"net"
	"testing"
	"time"
)

func TestUDPPublisherFrameLayout(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer listener.Close()

	sender, err := NewUDPSender(listener.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewUDPSender: %v", err)
	}
	defer sender.Close()

	pub := NewUDPPublisher(sender, nil)
	pub.Publish(Snapshot{
		MasterVolume: 0.5,
		GlobalVolume: 1.0,
		Slots: []SlotSnapshot{
			{Category: "sfx", Effective: 0.25},
			{Category: "music", Effective: 0.75},
		},
	})

	listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 256)
	n, _, err := listener.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("ReadFromUDP: %v", err)
	}
	data := buf[:n]

	wantLen := 4 + 8 + 4 + 4 + 2 + 2*4
	if len(data) != wantLen {
		t.Fatalf("len(data) = %d, want %d", len(data), wantLen)
	}

	seq := binary.BigEndian.Uint32(data[0:4])
	if seq != 1 {
		t.Errorf("sequence = %d, want 1 for first publish", seq)
	}

	slotCount := binary.BigEndian.Uint16(data[20:22])
	if slotCount != 2 {
		t.Errorf("slot count = %d, want 2", slotCount)
	}
}

func TestUDPPublisherIncrementsSequence(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer listener.Close()

	sender, err := NewUDPSender(listener.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewUDPSender: %v", err)
	}
	defer sender.Close()

	pub := NewUDPPublisher(sender, nil)
	pub.Publish(Snapshot{})
	pub.Publish(Snapshot{})

	listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64)

	for i, want := range []uint32{1, 2} {
		n, _, err := listener.ReadFromUDP(buf)
		if err != nil {
			t.Fatalf("ReadFromUDP[%d]: %v", i, err)
		}
		got := binary.BigEndian.Uint32(buf[:n])
		if got != want {
			t.Errorf("packet %d sequence = %d, want %d", i, got, want)
		}
	}
}

func TestUDPSenderSendAfterCloseErrors(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer listener.Close()

	sender, err := NewUDPSender(listener.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewUDPSender: %v", err)
	}
	sender.Close()

	if err := sender.Send([]byte("x")); err == nil {
		t.Fatal("expected an error sending after Close")
	}
}

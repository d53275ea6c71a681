package netio

import (
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wydtm/tmsrv/internal/netio/packet"
	"go.uber.org/zap"
)

// Session represents a single client connection. Network I/O runs in
// dedicated goroutines; game state is accessed only from the world tick.
type Session struct {
	ID   uint64
	conn net.Conn

	crypto *CryptoSession
	state  atomic.Int32 // packet.SessionState stored as int32
	mu     sync.Mutex   // protects conn writes during init

	limiter *TokenBucket

	InQueue  chan InboundPacket // world tick reads packets from here
	OutQueue chan OutboundPacket // writer goroutine reads from here

	IP          string
	AccountName string
	CharName    string

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	log *zap.Logger
}

// InboundPacket is a decrypted, de-framed packet handed to the world tick.
type InboundPacket struct {
	Type    packet.Opcode
	Payload []byte
}

// OutboundPacket is a packet queued for the writer goroutine to frame,
// encrypt, and flush.
type OutboundPacket struct {
	Type    packet.Opcode
	Payload []byte
}

func NewSession(conn net.Conn, id uint64, inSize, outSize, packetsPerSecond int, log *zap.Logger) *Session {
	s := &Session{
		ID:       id,
		conn:     conn,
		InQueue:  make(chan InboundPacket, inSize),
		OutQueue: make(chan OutboundPacket, outSize),
		IP:       conn.RemoteAddr().String(),
		limiter:  NewTokenBucket(packetsPerSecond),
		closeCh:  make(chan struct{}),
		log:      log.With(zap.Uint64("session", id)),
	}
	s.state.Store(int32(packet.StateHandshake))
	return s
}

func (s *Session) State() packet.SessionState {
	return packet.SessionState(s.state.Load())
}

func (s *Session) SetState(st packet.SessionState) {
	s.state.Store(int32(st))
}

// Start sends the plaintext handshake frame carrying the cipher seed,
// derives this connection's CryptoSession from it, and launches the
// reader and writer goroutines. serverSecret is the process-lifetime
// PBKDF2 pepper generated once at boot (§4.1 key derivation).
func (s *Session) Start(serverSecret []byte) {
	seed := rand.Int31n(0x7FFFFFFE) + 1 // positive non-zero int32

	w := packet.NewWriter()
	w.WriteDU(uint32(seed))

	s.mu.Lock()
	err := WriteFrame(s.conn, Header{Type: packet.OpHandshake, ClientID: uint16(s.ID)}, w.Bytes())
	s.mu.Unlock()
	if err != nil {
		s.log.Error("交握封包發送失敗", zap.Error(err))
		s.Close()
		return
	}

	s.crypto = NewCryptoSession(seed, serverSecret)

	go s.readLoop()
	go s.writeLoop()
}

// Send queues a packet for sending. Non-blocking: if OutQueue is full,
// the session is disconnected (backpressure).
func (s *Session) Send(opcode packet.Opcode, payload []byte) {
	if s.closed.Load() {
		return
	}
	select {
	case s.OutQueue <- OutboundPacket{Type: opcode, Payload: payload}:
	default:
		s.log.Warn("輸出佇列已滿，斷開慢速連線")
		s.Close()
	}
}

// Close gracefully shuts down the session.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.SetState(packet.StateClosing)
		close(s.closeCh)
		s.conn.Close()
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// readLoop runs in its own goroutine. It reads frames from the TCP
// connection and pushes the validation pipeline's output onto InQueue for
// the world tick to consume (§4.1 steps 1-5).
func (s *Session) readLoop() {
	defer s.Close()

	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		header, raw, err := ReadFrame(s.conn)
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("讀取錯誤", zap.Error(err))
			}
			return
		}

		if Checksum(raw) != header.Checksum {
			s.log.Warn("校驗碼錯誤，丟棄封包", zap.Uint16("type", header.Type))
			continue
		}

		s.crypto.ApplyPendingRotation()
		payload, err := s.crypto.Decrypt(raw, false)
		if err != nil {
			s.log.Warn("解密失敗", zap.Error(err), zap.Uint16("type", header.Type))
			continue
		}

		seq := uint32(0)
		if len(payload) >= 4 {
			seq = uint32(payload[0]) | uint32(payload[1])<<8 | uint32(payload[2])<<16 | uint32(payload[3])<<24
			payload = payload[4:]
		}
		if dup, stale := s.crypto.CheckSequence(seq); dup || stale {
			continue // duplicate/out-of-order frame, drop silently
		}

		if !s.limiter.Allow() {
			s.log.Debug("封包流量限制觸發", zap.Uint16("type", header.Type))
			continue
		}

		select {
		case s.InQueue <- InboundPacket{Type: header.Type, Payload: payload}:
		case <-s.closeCh:
			return
		}
	}
}

// writeLoop runs in its own goroutine. It reads packets from OutQueue,
// encrypts and frames them, and writes them to the TCP connection.
func (s *Session) writeLoop() {
	defer s.Close()
	var seq uint32

	for {
		select {
		case out := <-s.OutQueue:
			s.log.Debug("TX", zap.Uint16("type", out.Type), zap.Int("len", len(out.Payload)))

			seq++
			framed := make([]byte, 4+len(out.Payload))
			framed[0] = byte(seq)
			framed[1] = byte(seq >> 8)
			framed[2] = byte(seq >> 16)
			framed[3] = byte(seq >> 24)
			copy(framed[4:], out.Payload)

			encrypted, err := s.crypto.Encrypt(framed)
			if err != nil {
				s.log.Error("加密失敗", zap.Error(err))
				return
			}

			s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := WriteFrame(s.conn, Header{Type: out.Type, ClientID: uint16(s.ID)}, encrypted); err != nil {
				if !s.closed.Load() {
					s.log.Debug("寫入錯誤", zap.Error(err))
				}
				return
			}
		case <-s.closeCh:
			return
		}
	}
}

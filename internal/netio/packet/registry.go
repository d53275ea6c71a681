package packet

import (
	"fmt"

	"go.uber.org/zap"
)

// SessionState is the session lifecycle state gate of §4.1's validation
// pipeline step 4: Handshake → Authenticated → CharSelect → InWorld → Closing.
type SessionState int

const (
	StateHandshake SessionState = iota
	StateAuthenticated
	StateCharSelect
	StateInWorld
	StateClosing
)

func (s SessionState) String() string {
	switch s {
	case StateHandshake:
		return "Handshake"
	case StateAuthenticated:
		return "Authenticated"
	case StateCharSelect:
		return "CharSelect"
	case StateInWorld:
		return "InWorld"
	case StateClosing:
		return "Closing"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// HandlerFunc is the callback signature for packet handlers. The session
// pointer is passed as an opaque interface to avoid an import cycle between
// netio and the handler package that knows about world state.
type HandlerFunc func(sess any, r *Reader)

// SizeSpec describes the §4.1 "per-type expected size table" entry for one
// opcode: either a fixed payload size or a [min,max] range for
// explicit-length encodings (e.g. chat messages, item lists).
type SizeSpec struct {
	Min int // inclusive
	Max int // inclusive; 0 means "same as Min" (fixed size)
}

func (s SizeSpec) matches(payloadLen int) bool {
	max := s.Max
	if max == 0 {
		max = s.Min
	}
	return payloadLen >= s.Min && payloadLen <= max
}

type handlerEntry struct {
	fn            HandlerFunc
	allowedStates map[SessionState]bool
	size          SizeSpec
}

// Registry maps opcodes to handlers with state-based access control and
// a per-opcode expected-size table (§4.1 step 1). ExpectedSize exposes
// that table; neither Dispatch nor the session read loop consults it.
type Registry struct {
	handlers map[uint16]*handlerEntry
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		handlers: make(map[uint16]*handlerEntry),
		log:      log,
	}
}

// Register maps an opcode to a handler, restricted to the given session
// states, with the payload size range the type is allowed to carry.
func (reg *Registry) Register(opcode uint16, states []SessionState, size SizeSpec, fn HandlerFunc) {
	allowed := make(map[SessionState]bool, len(states))
	for _, s := range states {
		allowed[s] = true
	}
	reg.handlers[opcode] = &handlerEntry{
		fn:            fn,
		allowedStates: allowed,
		size:          size,
	}
}

// ExpectedSize reports whether opcode is known and whether payloadLen is
// legal for it. Unknown opcodes return (false, false).
func (reg *Registry) ExpectedSize(opcode uint16, payloadLen int) (known, ok bool) {
	entry, found := reg.handlers[opcode]
	if !found {
		return false, false
	}
	return true, entry.size.matches(payloadLen)
}

// Dispatch finds the handler for opcode, validates the session state gate,
// and calls the handler. Framing/checksum/sequence validation happens
// upstream in the Session read loop (§4.1 steps 1-3); this only enforces
// step 4 (state gate) before invoking the handler.
func (reg *Registry) Dispatch(sess any, state SessionState, opcode uint16, payload []byte) error {
	reg.log.Debug("收到封包",
		zap.Uint16("opcode", opcode),
		zap.Int("size", len(payload)),
		zap.String("state", state.String()),
	)

	entry, ok := reg.handlers[opcode]
	if !ok {
		reg.log.Debug("未知操作碼", zap.Uint16("opcode", opcode), zap.String("state", state.String()))
		return nil // silently ignore unknown opcodes
	}

	if !entry.allowedStates[state] {
		reg.log.Warn("操作碼在此狀態下不允許",
			zap.Uint16("opcode", opcode),
			zap.String("state", state.String()),
		)
		return &InvalidStateError{Opcode: opcode, State: state}
	}

	r := NewReader(payload)
	return reg.safeCall(entry.fn, sess, r, opcode)
}

// InvalidStateError is raised when an opcode arrives in a session state
// that does not permit it (§7 ProtocolError / InvalidState).
type InvalidStateError struct {
	Opcode uint16
	State  SessionState
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("opcode %d not allowed in state %s", e.Opcode, e.State)
}

// safeCall executes a handler with panic recovery so one malformed packet
// cannot crash the whole game loop.
func (reg *Registry) safeCall(fn HandlerFunc, sess any, r *Reader, opcode uint16) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("處理器 panic 已恢復",
				zap.Uint16("opcode", opcode),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("handler panic for opcode %d: %v", opcode, rec)
		}
	}()
	fn(sess, r)
	return nil
}

package netio

import (
	"bytes"
	"compress/zlib"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha1"
	"fmt"
	"io"
	"math/bits"

	"golang.org/x/crypto/pbkdf2"
)

// CipherMode selects one of the four wire ciphers a CryptoSession may run
// (§4.1): the legacy rolling-XOR cipher, two simple compatibility ciphers
// kept for older clients mid-rekey, and AES-CBC as the preferred mode.
type CipherMode byte

const (
	CipherXOR CipherMode = iota
	CipherByteShift
	CipherSubstitution
	CipherAESCBC
)

// CompressionMode gates the optional zlib compression stage (§4.1): applied
// only when payload length is at least the configured threshold and the
// compressed form is strictly smaller than the original.
type CompressionMode byte

const (
	CompressionNone CompressionMode = iota
	CompressionZlib
)

// DefaultCompressionThreshold is the payload size (bytes) at or above
// which compression is attempted.
const DefaultCompressionThreshold = 256

// CryptoSession owns one connection's symmetric cipher state: the active
// key/IV pair, a staged next-key/next-IV pair for rotation, a monotonic
// sequence counter (validation pipeline step 3), and the negotiated
// compression mode.
type CryptoSession struct {
	mode        CipherMode
	compression CompressionMode
	threshold   int

	xor *rollingXORCipher

	key []byte // 16 bytes, AES-128 key (CipherAESCBC)
	iv  []byte // 16 bytes, AES-CBC IV

	nextKey []byte
	nextIV  []byte
	pending bool // a rotation has been staged, takes effect on next encrypt/decrypt epoch boundary

	shiftKey byte // CipherByteShift rolling shift amount
	subBox   [256]byte
	subInv   [256]byte

	lastSeq uint32
	seqSeen bool
}

// NewCryptoSession derives a session's initial key material from the
// handshake seed via PBKDF2 (so the raw seed never doubles as the cipher
// key directly) and initializes the legacy rolling-XOR state, which is the
// cipher every session starts in before a REKEY packet upgrades it.
func NewCryptoSession(seed int32, serverSecret []byte) *CryptoSession {
	seedBytes := []byte{byte(seed), byte(seed >> 8), byte(seed >> 16), byte(seed >> 24)}
	keyMaterial := pbkdf2.Key(seedBytes, serverSecret, 4096, 32, sha1.New)

	cs := &CryptoSession{
		mode:        CipherXOR,
		compression: CompressionNone,
		threshold:   DefaultCompressionThreshold,
		xor:         newRollingXORCipher(seed),
		key:         keyMaterial[:16],
		iv:          keyMaterial[16:32],
		shiftKey:    keyMaterial[0],
	}
	cs.buildSubstitutionBox(keyMaterial[1])
	return cs
}

// SetMode switches the active cipher immediately (used once a handshake
// negotiates a stronger mode than the legacy XOR default).
func (cs *CryptoSession) SetMode(m CipherMode) {
	cs.mode = m
}

// SetCompression enables or disables the zlib stage and its threshold.
func (cs *CryptoSession) SetCompression(m CompressionMode, threshold int) {
	cs.compression = m
	if threshold > 0 {
		cs.threshold = threshold
	}
}

// StageRotation stores a next-key/next-IV pair. Both sides apply the new
// key material on the first packet of the new epoch, matching the
// "rotate on interval or explicit REKEY" rule in §4.1.
func (cs *CryptoSession) StageRotation(nextKey, nextIV []byte) {
	cs.nextKey = nextKey
	cs.nextIV = nextIV
	cs.pending = true
}

// ApplyPendingRotation swaps in staged key material. Called by the session
// layer on the first packet that should belong to the new epoch.
func (cs *CryptoSession) ApplyPendingRotation() {
	if !cs.pending {
		return
	}
	cs.key = cs.nextKey
	cs.iv = cs.nextIV
	cs.nextKey, cs.nextIV = nil, nil
	cs.pending = false
}

// CheckSequence enforces validation pipeline step 3: reject strictly-older
// sequence numbers, and report duplicates distinctly so the caller can drop
// them silently rather than raise an error.
func (cs *CryptoSession) CheckSequence(seq uint32) (duplicate bool, stale bool) {
	if !cs.seqSeen {
		cs.seqSeen = true
		cs.lastSeq = seq
		return false, false
	}
	if seq == cs.lastSeq {
		return true, false
	}
	if seq < cs.lastSeq {
		return false, true
	}
	cs.lastSeq = seq
	return false, false
}

// Encrypt encrypts payload (XOR mode mutates in place and returns the
// same slice; byte-shift, substitution and AES-CBC return a newly
// allocated slice) and applies compression first if configured.
func (cs *CryptoSession) Encrypt(payload []byte) ([]byte, error) {
	data := payload
	if cs.compression == CompressionZlib && len(data) >= cs.threshold {
		if compressed, ok := zlibCompress(data); ok && len(compressed) < len(data) {
			data = compressed
		}
	}

	switch cs.mode {
	case CipherXOR:
		return cs.xor.Encrypt(data), nil
	case CipherByteShift:
		return byteShiftEncrypt(data, cs.shiftKey), nil
	case CipherSubstitution:
		return substitute(data, cs.subBox[:]), nil
	case CipherAESCBC:
		return cs.aesEncrypt(data)
	default:
		return nil, fmt.Errorf("unknown cipher mode %d", cs.mode)
	}
}

// Decrypt reverses Encrypt's cipher step; when isCompressed is true the
// plaintext is decompressed after cipher decryption. The frame header
// carries no compression flag, and the session read loop passes false.
func (cs *CryptoSession) Decrypt(payload []byte, isCompressed bool) ([]byte, error) {
	var plain []byte
	var err error
	switch cs.mode {
	case CipherXOR:
		plain = cs.xor.Decrypt(payload)
	case CipherByteShift:
		plain = byteShiftDecrypt(payload, cs.shiftKey)
	case CipherSubstitution:
		plain = substitute(payload, cs.subInv[:])
	case CipherAESCBC:
		plain, err = cs.aesDecrypt(payload)
	default:
		return nil, fmt.Errorf("unknown cipher mode %d", cs.mode)
	}
	if err != nil {
		return nil, err
	}
	if isCompressed {
		return zlibDecompress(plain)
	}
	return plain, nil
}

func (cs *CryptoSession) aesEncrypt(data []byte) ([]byte, error) {
	block, err := aes.NewCipher(cs.key)
	if err != nil {
		return nil, err
	}
	padded := pkcs7Pad(data, aes.BlockSize)
	out := make([]byte, len(padded))
	mode := cipher.NewCBCEncrypter(block, cs.iv)
	mode.CryptBlocks(out, padded)
	return out, nil
}

func (cs *CryptoSession) aesDecrypt(data []byte) ([]byte, error) {
	if len(data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("aes-cbc payload not block-aligned: %d bytes", len(data))
	}
	block, err := aes.NewCipher(cs.key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	mode := cipher.NewCBCDecrypter(block, cs.iv)
	mode.CryptBlocks(out, data)
	return pkcs7Unpad(out)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	padLen := int(data[len(data)-1])
	if padLen <= 0 || padLen > len(data) {
		return nil, fmt.Errorf("invalid pkcs7 padding")
	}
	return data[:len(data)-padLen], nil
}

func zlibCompress(data []byte) ([]byte, bool) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, false
	}
	if err := w.Close(); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}

func zlibDecompress(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// byteShiftEncrypt/Decrypt implement CipherByteShift: each byte is rotated
// left by a key-dependent amount that advances by position, a simple
// compatibility cipher for older clients negotiating down from AES-CBC.
func byteShiftEncrypt(data []byte, key byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		shift := uint(key) + uint(i)%8
		out[i] = bits.RotateLeft8(b, int(shift))
	}
	return out
}

func byteShiftDecrypt(data []byte, key byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		shift := uint(key) + uint(i)%8
		out[i] = bits.RotateLeft8(b, -int(shift))
	}
	return out
}

// buildSubstitutionBox derives a fixed permutation of byte values from a
// single key byte (Fisher-Yates seeded deterministically by key) and its
// inverse, for CipherSubstitution.
func (cs *CryptoSession) buildSubstitutionBox(key byte) {
	for i := range cs.subBox {
		cs.subBox[i] = byte(i)
	}
	state := uint32(key)*2654435761 + 1
	for i := 255; i > 0; i-- {
		state = state*1664525 + 1013904223
		j := int(state>>8) % (i + 1)
		cs.subBox[i], cs.subBox[j] = cs.subBox[j], cs.subBox[i]
	}
	for i, v := range cs.subBox {
		cs.subInv[v] = byte(i)
	}
}

func substitute(data []byte, box []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = box[b]
	}
	return out
}

// rollingXORCipher is the legacy XOR stream cipher (CipherXOR, the default
// mode a session starts in before any rekey). The key-schedule update
// mixes plaintext back into the key state each call so repeated identical
// plaintext never produces repeated ciphertext.
type rollingXORCipher struct {
	eb [8]byte
	db [8]byte
	tb [4]byte
}

const (
	cipherMask1 = 0x9c30d539
	cipherMask2 = 0x930fd7e2
	cipherMask3 = 0x7c72e993
	cipherMask4 = 0x287effc3
)

func newRollingXORCipher(seed int32) *rollingXORCipher {
	c := &rollingXORCipher{}
	key := uint32(seed)

	keys := [2]uint32{
		key ^ cipherMask1,
		cipherMask2,
	}
	keys[0] = bits.RotateLeft32(keys[0], 0x13)
	keys[1] ^= keys[0] ^ cipherMask3

	for i := 0; i < 2; i++ {
		for j := 0; j < 4; j++ {
			b := byte((keys[i] >> (j * 8)) & 0xff)
			c.eb[i*4+j] = b
			c.db[i*4+j] = b
		}
	}
	return c
}

func (c *rollingXORCipher) Encrypt(data []byte) []byte {
	if len(data) < 4 {
		return data
	}
	copy(c.tb[:], data[:4])

	data[0] ^= c.eb[0]
	for i := 1; i < len(data); i++ {
		data[i] ^= data[i-1] ^ c.eb[i&7]
	}

	data[3] ^= c.eb[2]
	data[2] ^= c.eb[3] ^ data[3]
	data[1] ^= c.eb[4] ^ data[2]
	data[0] ^= c.eb[5] ^ data[1]

	c.update(c.eb[:], c.tb[:])
	return data
}

func (c *rollingXORCipher) Decrypt(data []byte) []byte {
	if len(data) < 4 {
		return data
	}
	data[0] ^= c.db[5] ^ data[1]
	data[1] ^= c.db[4] ^ data[2]
	data[2] ^= c.db[3] ^ data[3]
	data[3] ^= c.db[2]

	for i := len(data) - 1; i >= 1; i-- {
		data[i] ^= data[i-1] ^ c.db[i&7]
	}
	data[0] ^= c.db[0]

	c.update(c.db[:], data)
	return data
}

func (c *rollingXORCipher) update(keyBytes []byte, ref []byte) {
	for i := 0; i < 4; i++ {
		keyBytes[i] ^= ref[i]
	}
	val := uint32(keyBytes[4]) |
		uint32(keyBytes[5])<<8 |
		uint32(keyBytes[6])<<16 |
		uint32(keyBytes[7])<<24
	val += cipherMask4
	keyBytes[4] = byte(val)
	keyBytes[5] = byte(val >> 8)
	keyBytes[6] = byte(val >> 16)
	keyBytes[7] = byte(val >> 24)
}

// GenerateServerSecret produces a random 32-byte secret at boot, used as
// the PBKDF2 salt/pepper for deriving per-session key material from the
// handshake seed. Never persisted; rotates on every process restart.
func GenerateServerSecret() ([]byte, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	return secret, nil
}

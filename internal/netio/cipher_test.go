package netio

import "testing"

func TestRollingXORCipherRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		seed int32
		data []byte
	}{
		{name: "short payload", seed: 12345, data: []byte{1, 2, 3, 4}},
		{name: "longer payload", seed: 987654321, data: []byte("hello world, this is a test payload")},
		{name: "exactly four bytes", seed: 1, data: []byte{0xaa, 0xbb, 0xcc, 0xdd}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := newRollingXORCipher(tt.seed)
			dec := newRollingXORCipher(tt.seed)

			plain := append([]byte(nil), tt.data...)
			cipherText := enc.Encrypt(append([]byte(nil), plain...))
			recovered := dec.Decrypt(append([]byte(nil), cipherText...))

			if string(recovered) != string(plain) {
				t.Fatalf("round trip mismatch: got %v want %v", recovered, plain)
			}
		})
	}
}

func TestRollingXORCipherUnderFourBytesPassthrough(t *testing.T) {
	c := newRollingXORCipher(42)
	data := []byte{1, 2}
	out := c.Encrypt(append([]byte(nil), data...))
	if string(out) != string(data) {
		t.Fatalf("expected passthrough for <4 byte payload, got %v", out)
	}
}

func TestCryptoSessionAESRoundTrip(t *testing.T) {
	secret, err := GenerateServerSecret()
	if err != nil {
		t.Fatalf("GenerateServerSecret: %v", err)
	}
	cs := NewCryptoSession(555, secret)
	cs.SetMode(CipherAESCBC)

	plain := []byte("attack skillId=12 targetId=9001")
	encrypted, err := cs.Encrypt(plain)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	decrypted, err := cs.Decrypt(encrypted, false)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(decrypted) != string(plain) {
		t.Fatalf("round trip mismatch: got %q want %q", decrypted, plain)
	}
}

func TestCryptoSessionByteShiftAndSubstitutionRoundTrip(t *testing.T) {
	secret, err := GenerateServerSecret()
	if err != nil {
		t.Fatalf("GenerateServerSecret: %v", err)
	}

	for _, mode := range []CipherMode{CipherByteShift, CipherSubstitution} {
		cs := NewCryptoSession(777, secret)
		cs.SetMode(mode)

		plain := []byte("move x=100 y=200 z=0")
		encrypted, err := cs.Encrypt(plain)
		if err != nil {
			t.Fatalf("mode %d Encrypt: %v", mode, err)
		}
		decrypted, err := cs.Decrypt(encrypted, false)
		if err != nil {
			t.Fatalf("mode %d Decrypt: %v", mode, err)
		}
		if string(decrypted) != string(plain) {
			t.Fatalf("mode %d round trip mismatch: got %q want %q", mode, decrypted, plain)
		}
	}
}

func TestCryptoSessionCompressionRoundTrip(t *testing.T) {
	secret, err := GenerateServerSecret()
	if err != nil {
		t.Fatalf("GenerateServerSecret: %v", err)
	}
	cs := NewCryptoSession(111, secret)
	cs.SetCompression(CompressionZlib, 8)

	plain := make([]byte, 512)
	for i := range plain {
		plain[i] = byte(i % 7)
	}

	encrypted, err := cs.Encrypt(plain)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	decrypted, err := cs.Decrypt(encrypted, true)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if len(decrypted) != len(plain) {
		t.Fatalf("length mismatch: got %d want %d", len(decrypted), len(plain))
	}
	for i := range plain {
		if decrypted[i] != plain[i] {
			t.Fatalf("byte %d mismatch: got %d want %d", i, decrypted[i], plain[i])
		}
	}
}

func TestCryptoSessionRotation(t *testing.T) {
	secret, err := GenerateServerSecret()
	if err != nil {
		t.Fatalf("GenerateServerSecret: %v", err)
	}
	cs := NewCryptoSession(999, secret)
	cs.SetMode(CipherAESCBC)

	oldKey, oldIV := cs.key, cs.iv
	newKey := make([]byte, 16)
	newIV := make([]byte, 16)
	for i := range newKey {
		newKey[i] = byte(i + 1)
		newIV[i] = byte(i + 2)
	}

	cs.StageRotation(newKey, newIV)
	if string(cs.key) != string(oldKey) || string(cs.iv) != string(oldIV) {
		t.Fatalf("key/IV should not change until rotation is applied")
	}

	cs.ApplyPendingRotation()
	if string(cs.key) != string(newKey) || string(cs.iv) != string(newIV) {
		t.Fatalf("key/IV should match staged rotation after apply")
	}
}

func TestCryptoSessionSequenceGate(t *testing.T) {
	secret, err := GenerateServerSecret()
	if err != nil {
		t.Fatalf("GenerateServerSecret: %v", err)
	}
	cs := NewCryptoSession(1, secret)

	if dup, stale := cs.CheckSequence(10); dup || stale {
		t.Fatalf("first sequence should always be accepted")
	}
	if dup, stale := cs.CheckSequence(10); !dup {
		t.Fatalf("repeated sequence should be flagged duplicate, got dup=%v stale=%v", dup, stale)
	}
	if dup, stale := cs.CheckSequence(5); !stale {
		t.Fatalf("older sequence should be flagged stale, got dup=%v stale=%v", dup, stale)
	}
	if dup, stale := cs.CheckSequence(11); dup || stale {
		t.Fatalf("monotonically increasing sequence should be accepted")
	}
}

package pairing

import "testing"

func TestDeriveSharedSecret_Deterministic(t *testing.T) {
	salt := []byte("0123456789abcdef0123456789abcdef")
	randomA := []byte("random-a-bytes-random-a-bytes-32")
	randomB := []byte("random-b-bytes-random-b-bytes-32")

	s1, err := DeriveSharedSecret("123456", salt, randomA, randomB)
	if err != nil {
		t.Fatalf("DeriveSharedSecret: %v", err)
	}
	s2, err := DeriveSharedSecret("123456", salt, randomA, randomB)
	if err != nil {
		t.Fatalf("DeriveSharedSecret: %v", err)
	}
	if len(s1) != SharedSecretSize {
		t.Fatalf("len(secret) = %d, want %d", len(s1), SharedSecretSize)
	}
	if string(s1) != string(s2) {
		t.Error("same inputs produced different secrets")
	}
}

func TestDeriveSharedSecret_DifferentPINDiverges(t *testing.T) {
	salt := []byte("0123456789abcdef0123456789abcdef")
	randomA := []byte("random-a-bytes-random-a-bytes-32")
	randomB := []byte("random-b-bytes-random-b-bytes-32")

	s1, _ := DeriveSharedSecret("123456", salt, randomA, randomB)
	s2, _ := DeriveSharedSecret("000000", salt, randomA, randomB)
	if string(s1) == string(s2) {
		t.Error("different PINs produced identical secrets")
	}
}

func TestDeriveSessionKeys_DirectionsDiffer(t *testing.T) {
	secret := make([]byte, SharedSecretSize)
	for i := range secret {
		secret[i] = byte(i)
	}
	nonceC := []byte("client-nonce-16b")
	nonceS := []byte("server-nonce-16b")

	keys, err := DeriveSessionKeys(secret, nonceC, nonceS)
	if err != nil {
		t.Fatalf("DeriveSessionKeys: %v", err)
	}
	if keys.KeyC2S == keys.KeyS2C {
		t.Error("KeyC2S and KeyS2C must differ")
	}
}

func TestDeriveSessionKeys_NonceOrderMatters(t *testing.T) {
	secret := make([]byte, SharedSecretSize)
	nonceC := []byte("client-nonce-16b")
	nonceS := []byte("server-nonce-16b")

	k1, _ := DeriveSessionKeys(secret, nonceC, nonceS)
	k2, _ := DeriveSessionKeys(secret, nonceS, nonceC)
	if k1.KeyC2S == k2.KeyC2S {
		t.Error("swapping nonce order should change derived keys")
	}
}

func TestChallengeMAC_VerifyRoundTrips(t *testing.T) {
	secret := []byte("shared-secret-bytes-for-testing")
	challenge := []byte("32-bytes-of-challenge-data-here!")
	nonceC := []byte("nonce-c")
	nonceS := []byte("nonce-s")

	mac := ChallengeMAC(secret, challenge, nonceC, nonceS)
	if !VerifyChallengeMAC(secret, challenge, nonceC, nonceS, mac) {
		t.Error("VerifyChallengeMAC rejected a valid mac")
	}
	if VerifyChallengeMAC(secret, challenge, nonceC, nonceS, []byte("wrong")) {
		t.Error("VerifyChallengeMAC accepted an invalid mac")
	}
}

func TestGeneratePIN_SixDigits(t *testing.T) {
	pin, err := GeneratePIN()
	if err != nil {
		t.Fatalf("GeneratePIN: %v", err)
	}
	if len(pin) != 6 {
		t.Fatalf("len(pin) = %d, want 6", len(pin))
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			t.Fatalf("pin %q contains non-digit", pin)
		}
	}
}

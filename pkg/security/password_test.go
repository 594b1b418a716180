package security_test

import (
	"strings"
	"testing"

	"github.com/ideasdevops/lead-ia/pkg/config"
	"github.com/ideasdevops/lead-ia/pkg/security"
)

var testCfg = config.PasswordConfig{
	ArgonMemoryKB:    8192,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func TestHashAndVerifyPassword(t *testing.T) {
	hasher := security.NewHasher(testCfg)

	hash, err := hasher.Hash("very-secure-password")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected hash format %q", hash)
	}

	ok, err := hasher.Verify("very-secure-password", hash)
	if err != nil {
		t.Fatalf("Verify returned error for valid hash: %v", err)
	}
	if !ok {
		t.Fatal("Verify failed for the correct password")
	}

	ok, err = security.VerifyPassword("bogus-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for invalid password: %v", err)
	}
	if ok {
		t.Fatal("VerifyPassword returned true for incorrect password")
	}
}

func TestHashIsSalted(t *testing.T) {
	first, err := security.HashPassword("same-password", testCfg)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, err := security.HashPassword("same-password", testCfg)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct salts to produce distinct hashes")
	}
}

func TestHashRejectsEmpty(t *testing.T) {
	if _, err := security.NewHasher(testCfg).Hash(""); err != security.ErrEmptyPassword {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
}

func TestVerifyPasswordBadHash(t *testing.T) {
	for _, encoded := range []string{
		"not-a-hash",
		"$argon2i$v=19$m=8,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=8,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5",
	} {
		if _, err := security.VerifyPassword("irrelevant", encoded); err == nil {
			t.Fatalf("expected error for malformed hash %q", encoded)
		}
	}
}

package authcore

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// backupCodeAlphabet omits ambiguous characters (0/O, 1/I/L) so codes
// survive being read off paper.
const backupCodeAlphabet = "ABCDEFGHJKMNPQRSTVWXYZ23456789"

const backupCodeGroup = 4

// generateBackupCodes returns n plaintext codes in XXXX-XXXX form and
// their hashes. Plaintext goes to the client once; only hashes are
// stored.
func generateBackupCodes(n int) ([]string, []string, error) {
	codes := make([]string, 0, n)
	hashes := make([]string, 0, n)

	for i := 0; i < n; i++ {
		raw := make([]byte, backupCodeGroup*2)
		if _, err := rand.Read(raw); err != nil {
			return nil, nil, err
		}

		var b strings.Builder
		for j, c := range raw {
			if j == backupCodeGroup {
				b.WriteByte('-')
			}
			b.WriteByte(backupCodeAlphabet[int(c)%len(backupCodeAlphabet)])
		}

		code := b.String()
		codes = append(codes, code)
		hashes = append(hashes, hashBackupCode(code))
	}

	return codes, hashes, nil
}

// canonicalBackupCode normalizes user input: case-insensitive, dashes
// and spaces ignored.
func canonicalBackupCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	code = strings.ReplaceAll(code, "-", "")
	code = strings.ReplaceAll(code, " ", "")
	if len(code) != backupCodeGroup*2 {
		return code
	}
	return code[:backupCodeGroup] + "-" + code[backupCodeGroup:]
}

func hashBackupCode(code string) string {
	sum := sha256.Sum256([]byte(canonicalBackupCode(code)))
	return hex.EncodeToString(sum[:])
}

// consumeBackupCode removes the matching hash from the unused set.
// Returns the remaining set and whether a code was consumed. Every
// stored hash is compared so timing does not reveal which position
// matched.
func consumeBackupCode(hashes []string, code string) ([]string, bool) {
	want := hashBackupCode(code)

	matched := -1
	for i, h := range hashes {
		if subtle.ConstantTimeCompare([]byte(h), []byte(want)) == 1 && matched == -1 {
			matched = i
		}
	}
	if matched == -1 {
		return hashes, false
	}

	remaining := make([]string, 0, len(hashes)-1)
	remaining = append(remaining, hashes[:matched]...)
	remaining = append(remaining, hashes[matched+1:]...)
	return remaining, true
}

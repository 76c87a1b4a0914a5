package mfa

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"time"
)

const totpPeriod = 30

var totpEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateSecret produces a new base32 TOTP secret.
func GenerateSecret() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("mfa: generate secret: %w", err)
	}
	return totpEncoding.EncodeToString(buf), nil
}

// VerifyTOTP checks a 6-digit code against the secret, accepting the
// current 30 second window plus one window of clock drift either side.
func VerifyTOTP(secret, code string, at time.Time) bool {
	key, err := totpEncoding.DecodeString(secret)
	if err != nil {
		return false
	}
	counter := at.Unix() / totpPeriod
	for i := int64(-1); i <= 1; i++ {
		if totpCode(key, uint64(counter+i)) == code {
			return true
		}
	}
	return false
}

// TOTPCode returns the code for the window containing the given time.
func TOTPCode(secret string, at time.Time) (string, error) {
	key, err := totpEncoding.DecodeString(secret)
	if err != nil {
		return "", fmt.Errorf("mfa: decode secret: %w", err)
	}
	return totpCode(key, uint64(at.Unix()/totpPeriod)), nil
}

func totpCode(key []byte, counter uint64) string {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, counter)

	mac := hmac.New(sha1.New, key)
	mac.Write(buf)
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0xf
	binCode := int64(sum[offset]&0x7f)<<24 |
		int64(sum[offset+1])<<16 |
		int64(sum[offset+2])<<8 |
		int64(sum[offset+3])

	return fmt.Sprintf("%06d", binCode%1000000)
}

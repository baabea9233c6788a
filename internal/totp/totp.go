// Package totp wraps time-based one-time code generation and verification
// for the second authentication factor.
package totp

import (
	"crypto/subtle"
	"net/url"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Step is the TOTP time step. Codes rotate every 30 seconds.
const Step = 30 * time.Second

// GenerateSecret returns a fresh base32 shared secret for a new device.
func GenerateSecret(issuer, account string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
	})
	if err != nil {
		return "", err
	}
	return key.Secret(), nil
}

// ProvisioningURI builds the otpauth:// URI an authenticator app enrolls
// from, for an already-generated base32 secret. QR rendering of the URI is
// the caller's concern.
func ProvisioningURI(secret, account, issuer string) string {
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", issuer)
	v.Set("algorithm", "SHA1")
	v.Set("digits", "6")
	v.Set("period", "30")

	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + issuer + ":" + account,
		RawQuery: v.Encode(),
	}
	return u.String()
}

// Match checks a candidate code against the secret at the given time and,
// on success, returns the time step the code was computed for. One step of
// clock skew is tolerated on each side, so codes for the previous and next
// 30-second window also pass. Callers that must prevent replay record the
// returned step and reject codes at or before the last accepted one.
// Malformed candidates fail verification rather than erroring.
func Match(secret, code string, at time.Time) (int64, bool) {
	for _, offset := range []time.Duration{0, -Step, Step} {
		when := at.Add(offset)
		expected, err := totp.GenerateCodeCustom(secret, when, totp.ValidateOpts{
			Period:    uint(Step / time.Second),
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		})
		if err != nil {
			return 0, false
		}
		if subtle.ConstantTimeCompare([]byte(expected), []byte(code)) == 1 {
			return when.Unix() / int64(Step/time.Second), true
		}
	}
	return 0, false
}

// Verify reports whether the code is valid at the given time, without
// replay tracking. Enrollment QA and tests use it; the login path goes
// through Match so the accepted step can be burned.
func Verify(secret, code string, at time.Time) bool {
	_, ok := Match(secret, code, at)
	return ok
}

// GenerateCode computes the code for the given time. Used by tests and by
// nothing on the serving path.
func GenerateCode(secret string, at time.Time) (string, error) {
	return totp.GenerateCode(secret, at)
}

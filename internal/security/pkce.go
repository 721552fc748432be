package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"regexp"
)

const CodeChallengeMethodS256 = "S256"

// code_verifier и code_challenge: 43-128 символов из unreserved набора RFC 3986
var pkceValuePattern = regexp.MustCompile(`^[A-Za-z0-9\-._~]{43,128}$`)

func ValidPKCEValue(value string) bool {
	return pkceValuePattern.MatchString(value)
}

// ComputeS256Challenge : base64url(SHA256(verifier)) без паддинга
func ComputeS256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// VerifyPKCE сравнивает вычисленный challenge с сохраненным за постоянное время
func VerifyPKCE(verifier, challenge string) bool {
	computed := ComputeS256Challenge(verifier)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
}

// Package tokenclaims reads the claims carried by an access token without
// verifying its signature. The identity provider is trusted out-of-band; the
// decoded claims are only used to decide whether a locally held token is still
// worth presenting and to describe the signed-in identity.
package tokenclaims

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken is returned when a token cannot be decoded into claims.
var ErrMalformedToken = errors.New("tokenclaims.malformed")

const tokenSegmentCount = 3

var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// Claims is the JSON object embedded in the payload segment of an access token.
// Numeric values are kept as json.Number so they survive a decode unchanged.
type Claims map[string]any

// Decode splits a header.payload.signature token and parses the payload segment.
// The header and signature segments are not inspected.
func Decode(token string) (Claims, error) {
	segments := strings.Split(token, ".")
	if len(segments) != tokenSegmentCount {
		return nil, fmt.Errorf("tokenclaims.decode.segment_count: %w", ErrMalformedToken)
	}
	payloadSegment := strings.NewReplacer("+", "-", "/", "_").Replace(segments[1])
	payloadBytes, decodeErr := segmentParser.DecodeSegment(payloadSegment)
	if decodeErr != nil {
		return nil, fmt.Errorf("tokenclaims.decode.base64url: %w", errors.Join(ErrMalformedToken, decodeErr))
	}
	if !utf8.Valid(payloadBytes) {
		return nil, fmt.Errorf("tokenclaims.decode.utf8: %w", ErrMalformedToken)
	}

	decoder := json.NewDecoder(bytes.NewReader(payloadBytes))
	decoder.UseNumber()
	var claims Claims
	if jsonErr := decoder.Decode(&claims); jsonErr != nil {
		return nil, fmt.Errorf("tokenclaims.decode.json: %w", errors.Join(ErrMalformedToken, jsonErr))
	}
	if trailingErr := decoder.Decode(&struct{}{}); !errors.Is(trailingErr, io.EOF) {
		return nil, fmt.Errorf("tokenclaims.decode.trailing_data: %w", ErrMalformedToken)
	}
	if claims == nil {
		return nil, fmt.Errorf("tokenclaims.decode.not_object: %w", ErrMalformedToken)
	}
	return claims, nil
}

// Subject returns the sub claim, or an empty string when absent.
func (claims Claims) Subject() string {
	if claims == nil {
		return ""
	}
	subject, _ := claims["sub"].(string)
	return subject
}

// Expiry returns the exp claim in seconds since the epoch.
func (claims Claims) Expiry() (float64, bool) {
	if claims == nil {
		return 0, false
	}
	return numericClaim(claims["exp"])
}

// ExpiresAt returns the exp claim as a timestamp, or the zero time when absent
// or outside the range of a millisecond Unix time.
func (claims Claims) ExpiresAt() time.Time {
	seconds, ok := claims.Expiry()
	if !ok {
		return time.Time{}
	}
	milliseconds := seconds * 1000
	if math.IsNaN(milliseconds) || milliseconds >= math.MaxInt64 || milliseconds < math.MinInt64 {
		return time.Time{}
	}
	return time.UnixMilli(int64(milliseconds)).UTC()
}

// ValidAt reports whether now is strictly before exp. The comparison is made in
// milliseconds against exp*1000; a missing or non-numeric exp is never valid.
func (claims Claims) ValidAt(now time.Time) bool {
	seconds, ok := claims.Expiry()
	if !ok {
		return false
	}
	return float64(now.UnixMilli()) < seconds*1000
}

// Initials returns the first two characters of the subject in upper case,
// falling back to "A" when there is no subject.
func (claims Claims) Initials() string {
	subject := claims.Subject()
	if subject == "" {
		return "A"
	}
	runes := []rune(subject)
	if len(runes) > 2 {
		runes = runes[:2]
	}
	return strings.ToUpper(string(runes))
}

// Clone returns a shallow copy so callers cannot mutate published claims.
func (claims Claims) Clone() Claims {
	if claims == nil {
		return nil
	}
	cloned := make(Claims, len(claims))
	for key, value := range claims {
		cloned[key] = value
	}
	return cloned
}

func numericClaim(value any) (float64, bool) {
	switch typed := value.(type) {
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	case float64:
		return typed, true
	case int64:
		return float64(typed), true
	case int:
		return float64(typed), true
	default:
		return 0, false
	}
}

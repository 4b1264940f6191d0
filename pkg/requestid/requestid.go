package requestid

import (
	"context"
	crand "crypto/rand"
	"math/big"
	"strings"
	"time"
)

// HeaderKey is sent on every outbound call so a reply can be matched to its
// dump file and log line.
const HeaderKey = "X-Client-Request-Id"

// Gen generates a request id: yyyymmddHHMMSSuuuuuu + 8 random digits.
func Gen() string {
	return timeString() + randomDigits(8)
}

type ctxKey struct{}

// WithID stores id in ctx so the transport reuses it instead of generating one.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, strings.TrimSpace(id))
}

// FromContext returns the id stored by WithID, or "".
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func timeString() string {
	return strings.ReplaceAll(time.Now().Format("20060102150405.000000"), ".", "")
}

func randomDigits(n int) string {
	const digits = "0123456789"
	if n <= 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(digits[cryptoRandIntn(len(digits))])
	}
	return b.String()
}

func cryptoRandIntn(max int) int {
	if max <= 0 {
		return 0
	}
	nBig, err := crand.Int(crand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0
	}
	return int(nBig.Int64())
}

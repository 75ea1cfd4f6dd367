package order

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// trackingTokenBytes gives 192 bits of entropy.
const trackingTokenBytes = 24

// NewTrackingToken returns a URL-safe random token for public tracking links.
func NewTrackingToken() (string, error) {
	buf := make([]byte, trackingTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate tracking token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// newOrderNumber formats the human readable order number, e.g. ORD-20250114-3F2A9C1D.
func newOrderNumber(id uuid.UUID, at time.Time) string {
	return fmt.Sprintf("ORD-%s-%s", at.Format("20060102"), strings.ToUpper(id.String()[:8]))
}

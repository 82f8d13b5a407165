package utils

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// TrackingTokenSecret signs open-tracking tokens so a pixel URL cannot
// be forged from the message id alone. Set once at startup.
var TrackingTokenSecret = "investment-emailer"

// GenerateTrackingPixelURL builds the open-tracking pixel URL for a
// sent message.
func GenerateTrackingPixelURL(baseURL string, emailID uint) string {
	return fmt.Sprintf("%s/track/open/%d/%s", baseURL, emailID, TrackingToken(emailID))
}

// TrackingToken derives the verification token for a message id.
func TrackingToken(emailID uint) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", TrackingTokenSecret, emailID)))
	return base64.URLEncoding.EncodeToString(hash[:])[:20]
}

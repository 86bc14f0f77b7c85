// Package backup exports the whole dataset as a checksummed JSON snapshot and
// restores it again.
package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	apperrors "github.com/shanky101/habit-tracker-mobile-sub000/internal/errors"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/models"
)

const (
	// CurrentVersion added the badge arrays to the data section.
	CurrentVersion      = 2
	MinSupportedVersion = 1
)

// Device describes the installation that produced a snapshot.
type Device struct {
	Platform   string `json:"platform"`
	DeviceID   string `json:"deviceId"`
	AppVersion string `json:"appVersion"`
	OSVersion  string `json:"osVersion,omitempty"`
}

// Snapshot is the backup document. Checksum is the hex sha256 of the document
// without the checksum field.
type Snapshot struct {
	Version   int            `json:"version"`
	Timestamp time.Time      `json:"timestamp"`
	Device    Device         `json:"device"`
	Data      models.Dataset `json:"data"`
	Checksum  string         `json:"checksum,omitempty"`
}

// Marshal returns the serialized snapshot, checksum included.
func Marshal(s *Snapshot) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("nil snapshot")
	}
	return json.Marshal(s)
}

// seal computes and attaches the checksum. It returns the serialized document.
func seal(s *Snapshot) ([]byte, error) {
	s.Checksum = ""
	unsealed, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize snapshot: %w", err)
	}
	sum, err := digest(unsealed)
	if err != nil {
		return nil, err
	}
	s.Checksum = sum
	return json.Marshal(s)
}

// digest hashes the top-level members of raw, minus "checksum", in sorted key
// order with compacted values. It works on the raw bytes so that any change to
// the document, including the case of a key, changes the result.
func digest(raw []byte) (string, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil {
		return "", apperrors.E(apperrors.KindMalformedSnapshot, "backup.digest", err)
	}
	delete(members, "checksum")

	canonical, err := json.Marshal(members)
	if err != nil {
		return "", apperrors.E(apperrors.KindMalformedSnapshot, "backup.digest", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/constants"
	apperrors "github.com/shanky101/habit-tracker-mobile-sub000/internal/errors"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/logger"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/metrics"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/models"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/storage"
)

// Failure reasons reported by Validate and Restore.
const (
	ReasonChecksumMismatch   = string(apperrors.KindChecksumMismatch)
	ReasonUnsupportedVersion = string(apperrors.KindUnsupportedVersion)
	ReasonMalformed          = string(apperrors.KindMalformedSnapshot)
	ReasonStorage            = "storage error"
)

var (
	requiredFields     = []string{"version", "timestamp", "device", "data", "checksum"}
	requiredDataFields = []string{
		"habits", "completions", "entries", "templates", "vacationIntervals",
		"userProfile", "mascotCustomization", "settings", "metadata",
	}
)

type ValidationResult struct {
	Valid  bool
	Reason string
	Err    error
	// Snapshot is the parsed document when Valid is set.
	Snapshot *Snapshot
}

// RestoreResult carries the restored row counts, or the reason a restore was refused.
type RestoreResult struct {
	models.RestoreCounts
	Reason string
	// Version and Timestamp describe the restored snapshot.
	Version   int
	Timestamp time.Time
	Device    Device
}

// Validate checks raw without touching storage: version range, required fields,
// device platform and checksum, in that order.
func Validate(raw []byte) ValidationResult {
	snap, err := parse(raw)
	if err != nil {
		return ValidationResult{Reason: reasonFor(err), Err: err}
	}
	return ValidationResult{Valid: true, Snapshot: snap}
}

// ValidateSnapshot validates an in-memory snapshot as it would serialize.
func ValidateSnapshot(s *Snapshot) ValidationResult {
	raw, err := Marshal(s)
	if err != nil {
		err = apperrors.E(apperrors.KindMalformedSnapshot, "backup.validate", err)
		return ValidationResult{Reason: ReasonMalformed, Err: err}
	}
	return Validate(raw)
}

func parse(raw []byte) (*Snapshot, error) {
	const op = "backup.validate"
	malformed := func(format string, args ...any) error {
		return apperrors.E(apperrors.KindMalformedSnapshot, op, fmt.Errorf(format, args...))
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, malformed("invalid JSON: %w", err)
	}

	rawVersion, ok := top["version"]
	if !ok {
		return nil, malformed("missing field version")
	}
	var version int
	if err := json.Unmarshal(rawVersion, &version); err != nil {
		return nil, malformed("version is not an integer: %w", err)
	}
	if version < MinSupportedVersion || version > CurrentVersion {
		return nil, apperrors.E(apperrors.KindUnsupportedVersion, op,
			fmt.Errorf("version %d outside %d..%d", version, MinSupportedVersion, CurrentVersion))
	}

	for _, field := range requiredFields {
		if _, ok := top[field]; !ok {
			return nil, malformed("missing field %s", field)
		}
	}
	var data map[string]json.RawMessage
	if err := json.Unmarshal(top["data"], &data); err != nil {
		return nil, malformed("data is not an object: %w", err)
	}
	for _, field := range requiredDataFields {
		if _, ok := data[field]; !ok {
			return nil, malformed("missing field data.%s", field)
		}
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, malformed("invalid snapshot: %w", err)
	}
	if snap.Checksum == "" {
		return nil, malformed("empty checksum")
	}
	if snap.Device.Platform != constants.PlatformIOS && snap.Device.Platform != constants.PlatformAndroid {
		return nil, malformed("unknown platform %q", snap.Device.Platform)
	}

	sum, err := digest(raw)
	if err != nil {
		return nil, err
	}
	if sum != snap.Checksum {
		return nil, apperrors.E(apperrors.KindChecksumMismatch, op,
			fmt.Errorf("expected %s, computed %s", snap.Checksum, sum))
	}
	return &snap, nil
}

func reasonFor(err error) string {
	switch kind := apperrors.KindOf(err); kind {
	case apperrors.KindChecksumMismatch, apperrors.KindUnsupportedVersion, apperrors.KindMalformedSnapshot:
		return string(kind)
	default:
		return ReasonStorage
	}
}

// Importer restores validated snapshots through a DatasetWriter.
type Importer struct {
	writer storage.DatasetWriter
}

func NewImporter(writer storage.DatasetWriter) *Importer {
	return &Importer{writer: writer}
}

// Restore validates raw and, only if it is valid, replaces the stored dataset in
// one transaction. A refused or failed restore leaves storage unchanged and
// reports the reason in the result as well as the error.
func (i *Importer) Restore(ctx context.Context, raw []byte, onProgress ProgressFunc) (RestoreResult, error) {
	start := time.Now()
	res, err := i.restore(ctx, raw, onProgress)
	metrics.ObserveRestore(start, err)
	if err != nil {
		metrics.RecordRejection(res.Reason)
		logger.Error("Restore failed", "reason", res.Reason, "error", err)
		return res, err
	}
	logger.Info("Restore complete",
		"habits", res.Habits, "completions", res.Completions, "entries", res.Entries)
	return res, nil
}

func (i *Importer) restore(ctx context.Context, raw []byte, onProgress ProgressFunc) (RestoreResult, error) {
	onProgress.report(5, "Validating snapshot")
	v := Validate(raw)
	if !v.Valid {
		return RestoreResult{Reason: v.Reason}, v.Err
	}
	snap := v.Snapshot
	res := RestoreResult{Version: snap.Version, Timestamp: snap.Timestamp, Device: snap.Device}

	onProgress.report(30, "Replacing data")
	counts, err := i.writer.ReplaceDataset(ctx, &snap.Data)
	if err != nil {
		res.Reason = ReasonStorage
		return res, fmt.Errorf("failed to restore snapshot: %w", err)
	}
	res.RestoreCounts = counts

	onProgress.report(100, "Restore complete")
	return res, nil
}

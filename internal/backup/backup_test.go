package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/constants"
	apperrors "github.com/shanky101/habit-tracker-mobile-sub000/internal/errors"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/models"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/storage/sqlite"
)

func strPtr(s string) *string { return &s }

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "habits.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Init(context.Background()))
	return s
}

func habit(id, name string, sortOrder int) models.Habit {
	return models.Habit{
		ID:                      id,
		Name:                    name,
		Frequency:               models.FrequencyDaily,
		TargetCompletionsPerDay: 1,
		SelectedDays:            []int{0, 1, 2, 3, 4, 5, 6},
		SortOrder:               sortOrder,
		CreatedAt:               time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// scenarioHabits holds 4 habits with 10 completions and 3 entries between them.
func scenarioHabits() []models.Habit {
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	day := func(n int) string { return at.AddDate(0, 0, n).Format(constants.DateFormat) }

	journal := habit("h-journal", "Evening journal", 0)
	journal = models.Complete(journal, day(0), at, &models.HabitEntry{ID: "e1", Mood: strPtr("calm")})
	journal = models.Complete(journal, day(1), at.AddDate(0, 0, 1), &models.HabitEntry{ID: "e2", Note: strPtr("short one")})
	journal = models.Complete(journal, day(2), at.AddDate(0, 0, 2), nil)
	journal = models.Complete(journal, day(3), at.AddDate(0, 0, 3), nil)

	read := habit("h-read", "Read", 1)
	read = models.Complete(read, day(0), at, &models.HabitEntry{ID: "e3"})
	read = models.Complete(read, day(1), at.AddDate(0, 0, 1), nil)
	read = models.Complete(read, day(2), at.AddDate(0, 0, 2), nil)

	stretch := habit("h-stretch", "Stretch", 2)
	stretch = models.Complete(stretch, day(0), at, nil)
	stretch = models.Complete(stretch, day(1), at.AddDate(0, 0, 1), nil)

	meditate := habit("h-meditate", "Meditate", 3)
	meditate = models.Complete(meditate, day(0), at, nil)

	return []models.Habit{journal, read, stretch, meditate}
}

func exportRaw(t *testing.T, s *sqlite.Store) []byte {
	t.Helper()
	snap, err := NewExporter(s, constants.PlatformIOS, "1.4.0").Export(context.Background(), nil)
	require.NoError(t, err)
	raw, err := Marshal(snap)
	require.NoError(t, err)
	return raw
}

func emptyDataset() models.Dataset {
	return models.Dataset{
		Habits:      []models.Habit{},
		Completions: []models.CompletionRecord{},
		Entries:     []models.EntryRecord{},
		Templates:   []models.HabitTemplate{},
		Vacation:    []models.VacationInterval{},
		Settings:    map[string]json.RawMessage{},
		Metadata:    map[string]json.RawMessage{},
	}
}

func sealed(t *testing.T, snap Snapshot) []byte {
	t.Helper()
	raw, err := seal(&snap)
	require.NoError(t, err)
	return raw
}

func minimalSnapshot(version int) Snapshot {
	return Snapshot{
		Version:   version,
		Timestamp: time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
		Device:    Device{Platform: constants.PlatformAndroid, DeviceID: "dev-1", AppVersion: "1.0.0"},
		Data:      emptyDataset(),
	}
}

type recordingWriter struct {
	calls int
	err   error
}

func (w *recordingWriter) ReplaceDataset(ctx context.Context, ds *models.Dataset) (models.RestoreCounts, error) {
	w.calls++
	if w.err != nil {
		return models.RestoreCounts{}, w.err
	}
	return models.RestoreCounts{Habits: len(ds.Habits)}, nil
}

func TestExportRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newStore(t)
	require.NoError(t, src.Habits().SyncAll(ctx, scenarioHabits()))
	require.NoError(t, src.Settings().Set(ctx, "theme", "dark"))
	raw := exportRaw(t, src)

	dst := newStore(t)
	dstDevice, err := dst.DeviceID(ctx)
	require.NoError(t, err)

	res, err := NewImporter(dst).Restore(ctx, raw, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Reason)
	assert.Equal(t, 4, res.Habits)
	assert.Equal(t, 10, res.Completions)
	assert.Equal(t, 3, res.Entries)
	assert.Equal(t, CurrentVersion, res.Version)

	want, err := src.Habits().GetAll(ctx, true)
	require.NoError(t, err)
	got, err := dst.Habits().GetAll(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	var theme string
	found, err := dst.Settings().Get(ctx, "theme", &theme)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "dark", theme)

	again, err := dst.DeviceID(ctx)
	require.NoError(t, err)
	assert.Equal(t, dstDevice, again, "restore keeps the local device id")

	// A restored dataset is never topped up with default habits.
	require.NoError(t, dst.Init(ctx))
	got, err = dst.Habits().GetAll(ctx, true)
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestExportSnapshotShape(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.Habits().SyncAll(ctx, scenarioHabits()))

	e := NewExporter(s, constants.PlatformAndroid, "2.0.0")
	fixed := time.Date(2026, 5, 5, 10, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return fixed }

	snap, err := e.Export(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, snap.Version)
	assert.Equal(t, fixed, snap.Timestamp)
	assert.Equal(t, constants.PlatformAndroid, snap.Device.Platform)
	assert.Equal(t, "2.0.0", snap.Device.AppVersion)
	assert.NotEmpty(t, snap.Device.DeviceID)
	assert.Len(t, snap.Checksum, 64)
	assert.Len(t, snap.Data.Habits, 4)
	assert.Len(t, snap.Data.Completions, 10)
	assert.Len(t, snap.Data.Entries, 3)
	for _, h := range snap.Data.Habits {
		assert.Nil(t, h.Completions, "habits are exported flat")
	}

	assert.True(t, ValidateSnapshot(snap).Valid)
}

func TestExportFailsWithoutPartialSnapshot(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Close())

	snap, err := NewExporter(s, constants.PlatformIOS, "1.0.0").Export(context.Background(), nil)
	assert.Nil(t, snap)
	assert.ErrorIs(t, err, apperrors.ErrQuery)
}

func TestRestoreRejectsUnsupportedVersionBeforeWriting(t *testing.T) {
	for _, version := range []int{0, CurrentVersion + 1} {
		w := &recordingWriter{}
		res, err := NewImporter(w).Restore(context.Background(), sealed(t, minimalSnapshot(version)), nil)

		assert.ErrorIs(t, err, apperrors.ErrUnsupportedVersion)
		assert.Equal(t, "unsupported version", res.Reason)
		assert.Zero(t, w.calls, "no transaction for version %d", version)
	}
}

func TestValidateDetectsOneByteFlip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.Habits().SyncAll(ctx, scenarioHabits()))
	raw := exportRaw(t, s)
	require.True(t, Validate(raw).Valid)

	idx := bytes.Index(raw, []byte("Evening journal"))
	require.GreaterOrEqual(t, idx, 0)
	flipped := bytes.Clone(raw)
	flipped[idx] = 'e'

	res := Validate(flipped)
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonChecksumMismatch, res.Reason)
	assert.ErrorIs(t, res.Err, apperrors.ErrChecksumMismatch)

	w := &recordingWriter{}
	_, err := NewImporter(w).Restore(ctx, flipped, nil)
	assert.ErrorIs(t, err, apperrors.ErrChecksumMismatch)
	assert.Zero(t, w.calls)
}

func TestValidateDetectsKeyCaseFlip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.Habits().SyncAll(ctx, scenarioHabits()))
	raw := exportRaw(t, s)

	flipped := bytes.Replace(raw, []byte(`"habitId"`), []byte(`"habitID"`), 1)
	require.NotEqual(t, raw, flipped)

	assert.Equal(t, ReasonChecksumMismatch, Validate(flipped).Reason)
}

func TestValidateIgnoresWhitespace(t *testing.T) {
	raw := sealed(t, minimalSnapshot(CurrentVersion))

	var pretty bytes.Buffer
	require.NoError(t, json.Indent(&pretty, raw, "", "  "))
	assert.True(t, Validate(pretty.Bytes()).Valid)
}

func TestValidateAcceptsVersionOne(t *testing.T) {
	snap := minimalSnapshot(MinSupportedVersion)
	snap.Data.Habits = []models.Habit{habit("h1", "Walk", 0)}

	res := Validate(sealed(t, snap))
	require.True(t, res.Valid, "reason: %s", res.Reason)
	assert.Equal(t, 1, res.Snapshot.Version)
	assert.Nil(t, res.Snapshot.Data.BadgeProgress)
}

func TestValidateMalformed(t *testing.T) {
	valid := sealed(t, minimalSnapshot(CurrentVersion))

	withoutData := func(field string) []byte {
		var top map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(valid, &top))
		var data map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(top["data"], &data))
		delete(data, field)
		top["data"], _ = json.Marshal(data)
		out, err := json.Marshal(top)
		require.NoError(t, err)
		return out
	}
	without := func(field string) []byte {
		var top map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(valid, &top))
		delete(top, field)
		out, err := json.Marshal(top)
		require.NoError(t, err)
		return out
	}
	badPlatform := minimalSnapshot(CurrentVersion)
	badPlatform.Device.Platform = "windows"

	tests := []struct {
		name string
		raw  []byte
	}{
		{"not json", []byte("{not json")},
		{"array", []byte("[]")},
		{"string version", []byte(`{"version":"2"}`)},
		{"missing version", without("version")},
		{"missing checksum", without("checksum")},
		{"missing device", without("device")},
		{"missing settings", withoutData("settings")},
		{"missing habits", withoutData("habits")},
		{"wrong habits type", bytes.Replace(valid, []byte(`"habits":[]`), []byte(`"habits":"none"`), 1)},
		{"unknown platform", sealed(t, badPlatform)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.raw)
			assert.False(t, res.Valid)
			assert.Equal(t, ReasonMalformed, res.Reason)
			assert.ErrorIs(t, res.Err, apperrors.ErrMalformedSnapshot)
		})
	}
}

func TestRestoreReportsStorageError(t *testing.T) {
	w := &recordingWriter{err: apperrors.E(apperrors.KindTransactionAbort, "sqlite.replaceDataset", errors.New("disk I/O error"))}

	res, err := NewImporter(w).Restore(context.Background(), sealed(t, minimalSnapshot(CurrentVersion)), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrTransactionAbort)
	assert.Equal(t, ReasonStorage, res.Reason)
	assert.Equal(t, 1, w.calls)
}

func TestProgressIsMonotonic(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.Habits().SyncAll(ctx, scenarioHabits()))

	var percents []int
	var labels []string
	record := func(p int, label string) {
		percents = append(percents, p)
		labels = append(labels, label)
	}

	snap, err := NewExporter(s, constants.PlatformIOS, "1.0.0").Export(ctx, record)
	require.NoError(t, err)
	assertMonotonic(t, percents)
	assert.NotContains(t, labels, "")

	raw, err := Marshal(snap)
	require.NoError(t, err)
	percents = nil
	_, err = NewImporter(newStore(t)).Restore(ctx, raw, record)
	require.NoError(t, err)
	assertMonotonic(t, percents)
}

func assertMonotonic(t *testing.T, percents []int) {
	t.Helper()
	require.NotEmpty(t, percents)
	for i := 1; i < len(percents); i++ {
		assert.GreaterOrEqual(t, percents[i], percents[i-1], "step %d", i)
	}
	assert.Equal(t, 100, percents[len(percents)-1])
}

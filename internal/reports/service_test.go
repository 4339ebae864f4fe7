package reports

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grmc/storefront-backend/pkg/db/dbtest"
	"github.com/grmc/storefront-backend/pkg/db/models"
	"github.com/grmc/storefront-backend/pkg/enums"
	pkgerrors "github.com/grmc/storefront-backend/pkg/errors"
	"github.com/grmc/storefront-backend/pkg/geocode"
	"github.com/grmc/storefront-backend/pkg/logger"
	"github.com/grmc/storefront-backend/pkg/pagination"
)

type stubUploader struct {
	bucket  string
	object  string
	body    string
	deleted []string
	err     error
}

func (u *stubUploader) Upload(_ context.Context, bucket, object, _ string, body io.Reader) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	data, _ := io.ReadAll(body)
	u.bucket, u.object, u.body = bucket, object, string(data)
	return "https://storage.example/" + bucket + "/" + object, nil
}

func (u *stubUploader) DeleteObject(_ context.Context, _ string, object string) error {
	u.deleted = append(u.deleted, object)
	return nil
}

type stubGeocoder struct {
	name  string
	err   error
	calls int
}

func (g *stubGeocoder) Reverse(context.Context, float64, float64) (string, error) {
	g.calls++
	return g.name, g.err
}

func (g *stubGeocoder) Search(_ context.Context, q string) ([]geocode.Place, error) {
	return []geocode.Place{{DisplayName: q + ", Muscat", Latitude: 23.58, Longitude: 58.4}}, nil
}

type countingMetrics struct {
	submitted map[string]int
	geoFails  int
}

func (m *countingMetrics) ReportSubmitted(entry string) {
	if m.submitted == nil {
		m.submitted = map[string]int{}
	}
	m.submitted[entry]++
}

func (m *countingMetrics) GeocodeFailed() { m.geoFails++ }

type fixture struct {
	svc      Service
	uploader *stubUploader
	geo      *stubGeocoder
	metrics  *countingMetrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t, dbtest.MarbleReports)
	f := &fixture{
		uploader: &stubUploader{},
		geo:      &stubGeocoder{name: "Sohar, Oman"},
		metrics:  &countingMetrics{},
	}
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Uploader: f.uploader,
		Bucket:   "images",
		Geocoder: f.geo,
		Metrics:  f.metrics,
		Logger:   logger.Nop(),
		Now: func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		},
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func ptr(v float64) *float64 { return &v }

func TestSubmitMapEntryRequiresCoordinates(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Submit(context.Background(), EntryMap, SubmitInput{Name: "Salim", Description: "dumped slabs"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Submit(context.Background(), EntryForm, SubmitInput{Name: "Salim", Description: "dumped slabs"})
	require.NoError(t, err)
}

func TestSubmitRejectsMissingFieldsAndHalfPairs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, EntryForm, SubmitInput{Name: "  "})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, map[string]any{"fields": []string{"name", "description"}}, typed.Details())

	_, err = f.svc.Submit(ctx, EntryForm, SubmitInput{Name: "a", Description: "b", Latitude: ptr(23)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Submit(ctx, EntryMap, SubmitInput{Name: "a", Description: "b", Latitude: ptr(123), Longitude: ptr(58)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Empty(t, f.metrics.submitted)
}

func TestSubmitDefaultsAndGeocodedLocation(t *testing.T) {
	f := newFixture(t)
	dto, err := f.svc.Submit(context.Background(), EntryMap, SubmitInput{
		Name:        "Salim",
		Description: "marble dust near wadi",
		Latitude:    ptr(24.3461),
		Longitude:   ptr(56.7075),
		IsUrgent:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ReportStatusPending, dto.Status)
	assert.Equal(t, enums.ReportPriorityMedium, dto.Priority)
	assert.True(t, dto.IsUrgent)
	assert.Equal(t, "Sohar, Oman", dto.Location)
	assert.Equal(t, 1, f.metrics.submitted["map"])
	assert.Empty(t, dto.ImageURL)
}

func TestSubmitFallsBackToCoordinatesWhenGeocodeFails(t *testing.T) {
	f := newFixture(t)
	f.geo.err = errors.New("nominatim down")

	dto, err := f.svc.Submit(context.Background(), EntryMap, SubmitInput{
		Name:        "Salim",
		Description: "slabs",
		Latitude:    ptr(23.5880),
		Longitude:   ptr(58.3829),
	})
	require.NoError(t, err)
	assert.Equal(t, "إحداثيات: 23.588000, 58.382900", dto.Location)
	assert.Equal(t, 1, f.metrics.geoFails)
}

func TestSubmitKeepsTypedLocation(t *testing.T) {
	f := newFixture(t)
	dto, err := f.svc.Submit(context.Background(), EntryForm, SubmitInput{
		Name:        "Salim",
		Description: "slabs",
		Location:    "Barka industrial area",
		Latitude:    ptr(23.7),
		Longitude:   ptr(57.9),
		Priority:    "high",
	})
	require.NoError(t, err)
	assert.Equal(t, "Barka industrial area", dto.Location)
	assert.Equal(t, enums.ReportPriorityHigh, dto.Priority)
	assert.Zero(t, f.geo.calls)
}

func TestSubmitUploadsPhoto(t *testing.T) {
	f := newFixture(t)
	dto, err := f.svc.Submit(context.Background(), EntryForm, SubmitInput{
		Name:        "Salim",
		Description: "slabs",
		Photo:       &Photo{Filename: "My Photo.JPG", ContentType: "image/jpeg", Body: bytes.NewBufferString("jpeg")},
	})
	require.NoError(t, err)
	assert.Equal(t, "images", f.uploader.bucket)
	assert.True(t, strings.HasPrefix(f.uploader.object, "reports/"))
	assert.True(t, strings.HasSuffix(f.uploader.object, ".jpg"))
	assert.NotContains(t, f.uploader.object, "Photo")
	assert.Equal(t, "jpeg", f.uploader.body)
	assert.Equal(t, "https://storage.example/images/"+f.uploader.object, dto.ImageURL)

	require.NoError(t, f.svc.Delete(context.Background(), dto.ID))
	assert.Equal(t, []string{f.uploader.object}, f.uploader.deleted)
}

func TestSubmitFailsWhenUploadFails(t *testing.T) {
	f := newFixture(t)
	f.uploader.err = errors.New("bucket gone")
	_, err := f.svc.Submit(context.Background(), EntryForm, SubmitInput{
		Name:        "Salim",
		Description: "slabs",
		Photo:       &Photo{Filename: "a.png", Body: bytes.NewBufferString("png")},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	res, err := f.svc.List(context.Background(), ListFilter{}, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

type failingCreateRepo struct {
	repository
	err error
}

func (r failingCreateRepo) Create(context.Context, *models.MarbleReport) error { return r.err }

func TestSubmitRemovesPhotoWhenInsertFails(t *testing.T) {
	up := &stubUploader{}
	svc, err := NewService(ServiceParams{
		Repo:     failingCreateRepo{err: errors.New("connection reset")},
		Uploader: up,
		Bucket:   "images",
		Logger:   logger.Nop(),
	})
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), EntryForm, SubmitInput{
		Name:        "Salim",
		Description: "slabs",
		Photo:       &Photo{Filename: "a.png", ContentType: "image/png", Body: bytes.NewBufferString("png")},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	require.NotEmpty(t, up.object)
	assert.Equal(t, []string{up.object}, up.deleted)
}

func TestSubmitRejectsNonFiniteCoordinates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cases := map[string]SubmitInput{
		"nan pair":      {Name: "a", Description: "b", Latitude: ptr(math.NaN()), Longitude: ptr(math.NaN())},
		"nan longitude": {Name: "a", Description: "b", Latitude: ptr(23.5), Longitude: ptr(math.NaN())},
		"inf latitude":  {Name: "a", Description: "b", Latitude: ptr(math.Inf(1)), Longitude: ptr(58)},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Submit(ctx, EntryMap, in)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		})
	}
	assert.Empty(t, f.metrics.submitted)
	assert.Zero(t, f.geo.calls)
}

func TestAdminListStatsAndUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.svc.Submit(ctx, EntryForm, SubmitInput{Name: "A", Description: "old pile", Location: "Ibri"})
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, EntryForm, SubmitInput{Name: "B", Description: "new pile", Location: "Nizwa", IsUrgent: true})
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, EntryForm, SubmitInput{Name: "C", Description: "cutting waste", Location: "Sur"})
	require.NoError(t, err)

	res, err := f.svc.List(ctx, ListFilter{}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, res.Items, 3)
	assert.Equal(t, "B", res.Items[0].Name)

	res, err = f.svc.List(ctx, ListFilter{Search: "PILE"}, pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Meta.Total)

	status := "in_progress"
	priority := "normal"
	notes := "truck sent"
	updated, err := f.svc.Update(ctx, first.ID, AdminUpdate{Status: &status, Priority: &priority, AdminNotes: &notes})
	require.NoError(t, err)
	assert.Equal(t, enums.ReportStatusInProgress, updated.Status)
	assert.Equal(t, enums.ReportPriorityMedium, updated.Priority)
	assert.Equal(t, "truck sent", updated.AdminNotes)

	res, err = f.svc.List(ctx, ListFilter{Status: "in_progress"}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, first.ID, res.Items[0].ID)

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 3, Pending: 2, InProgress: 1, Completed: 0, Urgent: 1}, *stats)

	bad := "done"
	_, err = f.svc.Update(ctx, first.ID, AdminUpdate{Status: &bad})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Update(ctx, 999, AdminUpdate{Status: &status})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.List(ctx, ListFilter{Status: "bogus"}, pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDeleteMissingReport(t *testing.T) {
	f := newFixture(t)
	err := f.svc.Delete(context.Background(), 42)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestGeocodeProxy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	name, err := f.svc.Reverse(ctx, 23.6, 58.5)
	require.NoError(t, err)
	assert.Equal(t, "Sohar, Oman", name)

	_, err = f.svc.Reverse(ctx, 91, 0)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	places, err := f.svc.Search(ctx, "Ruwi")
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "Ruwi, Muscat", places[0].DisplayName)

	_, err = f.svc.Search(ctx, " ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCoordinatesLabel(t *testing.T) {
	assert.Equal(t, "إحداثيات: -1.500000, 2.123457", CoordinatesLabel(-1.5, 2.1234567))
}

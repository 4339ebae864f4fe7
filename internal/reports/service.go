package reports

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/grmc/storefront-backend/pkg/db"
	"github.com/grmc/storefront-backend/pkg/db/models"
	"github.com/grmc/storefront-backend/pkg/enums"
	pkgerrors "github.com/grmc/storefront-backend/pkg/errors"
	"github.com/grmc/storefront-backend/pkg/geocode"
	"github.com/grmc/storefront-backend/pkg/logger"
	"github.com/grmc/storefront-backend/pkg/metrics"
	"github.com/grmc/storefront-backend/pkg/pagination"
	"github.com/grmc/storefront-backend/pkg/storage"
	"github.com/grmc/storefront-backend/pkg/types"
)

// Entry identifies which public form produced a report.
type Entry string

const (
	// EntryMap is the contact-page map picker; coordinates are mandatory.
	EntryMap Entry = "map"
	// EntryForm is the standalone report page; coordinates are optional.
	EntryForm Entry = "form"

	photoPrefix = "reports"
)

// Photo is an optional picture attached to a report.
type Photo struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

type SubmitInput struct {
	Name        string
	Email       string
	Phone       string
	Location    string
	Description string
	Latitude    *float64
	Longitude   *float64
	IsUrgent    bool
	Priority    string
	Photo       *Photo
}

type ReportDTO struct {
	ID          int64                `json:"id"`
	Name        string               `json:"name"`
	Email       string               `json:"email,omitempty"`
	Phone       string               `json:"phone,omitempty"`
	Location    string               `json:"location"`
	Latitude    *float64             `json:"latitude,omitempty"`
	Longitude   *float64             `json:"longitude,omitempty"`
	Description string               `json:"description"`
	ImageURL    string               `json:"image_url,omitempty"`
	IsUrgent    bool                 `json:"is_urgent"`
	Priority    enums.ReportPriority `json:"priority"`
	Status      enums.ReportStatus   `json:"status"`
	AdminNotes  string               `json:"admin_notes,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

type ListResult struct {
	Items []ReportDTO    `json:"items"`
	Meta  types.PageMeta `json:"meta"`
}

type Stats struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
	Urgent     int64 `json:"urgent"`
}

// AdminUpdate carries the fields the back-office may change. Nil means untouched.
type AdminUpdate struct {
	Status     *string `json:"status"`
	Priority   *string `json:"priority"`
	IsUrgent   *bool   `json:"is_urgent"`
	AdminNotes *string `json:"admin_notes"`
}

type ListFilter struct {
	Status string
	Search string
}

type Service interface {
	Submit(ctx context.Context, entry Entry, input SubmitInput) (*ReportDTO, error)
	Reverse(ctx context.Context, lat, lng float64) (string, error)
	Search(ctx context.Context, query string) ([]geocode.Place, error)

	List(ctx context.Context, filter ListFilter, page pagination.Params) (*ListResult, error)
	Stats(ctx context.Context) (*Stats, error)
	Get(ctx context.Context, id int64) (*ReportDTO, error)
	Update(ctx context.Context, id int64, update AdminUpdate) (*ReportDTO, error)
	Delete(ctx context.Context, id int64) error
}

type repository interface {
	Create(ctx context.Context, report *models.MarbleReport) error
	FindByID(ctx context.Context, id int64) (*models.MarbleReport, error)
	List(ctx context.Context, filter Filter, page pagination.Params) ([]models.MarbleReport, int64, error)
	CountByStatus(ctx context.Context) (map[enums.ReportStatus]int64, int64, error)
	Update(ctx context.Context, id int64, fields map[string]any) error
	Delete(ctx context.Context, id int64) error
}

type uploader interface {
	Upload(ctx context.Context, bucket, object, contentType string, body io.Reader) (string, error)
	DeleteObject(ctx context.Context, bucket, object string) error
}

type geocoder interface {
	Reverse(ctx context.Context, lat, lng float64) (string, error)
	Search(ctx context.Context, query string) ([]geocode.Place, error)
}

type reportMetrics interface {
	ReportSubmitted(entry string)
	GeocodeFailed()
}

type ServiceParams struct {
	Repo     repository
	Uploader uploader
	Bucket   string
	Geocoder geocoder
	Metrics  reportMetrics
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	repo     repository
	uploader uploader
	bucket   string
	geocoder geocoder
	metrics  reportMetrics
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "report repo is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	m := params.Metrics
	if m == nil {
		m = (*metrics.StoreMetrics)(nil)
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	bucket := strings.TrimSpace(params.Bucket)
	if bucket == "" {
		bucket = "images"
	}
	return &service{
		repo:     params.Repo,
		uploader: params.Uploader,
		bucket:   bucket,
		geocoder: params.Geocoder,
		metrics:  m,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *service) Submit(ctx context.Context, entry Entry, input SubmitInput) (*ReportDTO, error) {
	if entry != EntryMap && entry != EntryForm {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown report entry")
	}
	input = trimInput(input)
	if err := validateSubmit(entry, input); err != nil {
		return nil, err
	}

	priority := enums.ReportPriorityMedium
	if input.Priority != "" {
		parsed, err := enums.ParseReportPriority(input.Priority)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid priority")
		}
		priority = parsed
	}

	now := s.now().UTC()
	report := models.MarbleReport{
		Name:        input.Name,
		Email:       input.Email,
		Phone:       input.Phone,
		Location:    input.Location,
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		Description: input.Description,
		IsUrgent:    input.IsUrgent,
		Priority:    priority,
		Status:      enums.ReportStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var object string
	if input.Photo != nil {
		name, url, err := s.storePhoto(ctx, input.Photo, now)
		if err != nil {
			return nil, err
		}
		object = name
		report.ImageURL = &url
	}

	if report.Location == "" && report.HasCoordinates() {
		report.Location = s.describeLocation(ctx, *report.Latitude, *report.Longitude)
	}

	if err := s.repo.Create(ctx, &report); err != nil {
		if object != "" {
			s.discardPhoto(ctx, object)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create report")
	}
	s.metrics.ReportSubmitted(string(entry))
	dto := toDTO(report)
	return &dto, nil
}

// storePhoto returns the object name alongside its public URL.
func (s *service) storePhoto(ctx context.Context, photo *Photo, now time.Time) (string, string, error) {
	if s.uploader == nil {
		return "", "", pkgerrors.New(pkgerrors.CodeDependency, "photo uploads are disabled")
	}
	object, err := storage.ObjectName(photoPrefix, photo.Filename, now)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "name report photo")
	}
	url, err := s.uploader.Upload(ctx, s.bucket, object, photo.ContentType, photo.Body)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload report photo")
	}
	return object, url, nil
}

// discardPhoto removes an upload whose report row was never written.
func (s *service) discardPhoto(ctx context.Context, object string) {
	if err := s.uploader.DeleteObject(ctx, s.bucket, object); err != nil {
		s.logg.WarnErr(s.logg.WithField(ctx, "object", object), "reports.orphan_photo_delete_failed", err)
	}
}

// describeLocation never fails; geocoder errors degrade to the raw pair.
func (s *service) describeLocation(ctx context.Context, lat, lng float64) string {
	if s.geocoder != nil {
		name, err := s.geocoder.Reverse(ctx, lat, lng)
		if err == nil && strings.TrimSpace(name) != "" {
			return strings.TrimSpace(name)
		}
		if err == nil {
			err = fmt.Errorf("empty display name")
		}
		s.metrics.GeocodeFailed()
		s.logg.WarnErr(s.logg.WithFields(ctx, map[string]any{"lat": lat, "lng": lng}), "reports.reverse_geocode_failed", err)
	}
	return CoordinatesLabel(lat, lng)
}

// CoordinatesLabel is the location text used when no place name is known.
func CoordinatesLabel(lat, lng float64) string {
	return fmt.Sprintf("إحداثيات: %.6f, %.6f", lat, lng)
}

func (s *service) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	if err := validateCoordinates(lat, lng); err != nil {
		return "", err
	}
	if s.geocoder == nil {
		return CoordinatesLabel(lat, lng), nil
	}
	return s.describeLocation(ctx, lat, lng), nil
}

func (s *service) Search(ctx context.Context, query string) ([]geocode.Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search query is required")
	}
	if s.geocoder == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "geocoding is not configured")
	}
	places, err := s.geocoder.Search(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search places")
	}
	return places, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, page pagination.Params) (*ListResult, error) {
	page = page.Normalize()
	var status enums.ReportStatus
	if raw := strings.TrimSpace(filter.Status); raw != "" && raw != "all" {
		parsed, err := enums.ParseReportStatus(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		status = parsed
	}
	rows, total, err := s.repo.List(ctx, Filter{Status: status, Search: filter.Search}, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reports")
	}
	items := make([]ReportDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, toDTO(row))
	}
	return &ListResult{
		Items: items,
		Meta:  types.PageMeta{Page: page.Page, Limit: page.Limit, Total: total},
	}, nil
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	counts, urgent, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "report stats")
	}
	stats := &Stats{
		Pending:    counts[enums.ReportStatusPending],
		InProgress: counts[enums.ReportStatusInProgress],
		Completed:  counts[enums.ReportStatusCompleted],
		Urgent:     urgent,
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

func (s *service) Get(ctx context.Context, id int64) (*ReportDTO, error) {
	report, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load report")
	}
	dto := toDTO(*report)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id int64, update AdminUpdate) (*ReportDTO, error) {
	fields := map[string]any{}
	if update.Status != nil {
		status, err := enums.ParseReportStatus(strings.TrimSpace(*update.Status))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		fields["status"] = status
	}
	if update.Priority != nil {
		priority, err := enums.ParseReportPriority(*update.Priority)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid priority")
		}
		fields["priority"] = priority
	}
	if update.IsUrgent != nil {
		fields["is_urgent"] = *update.IsUrgent
	}
	if update.AdminNotes != nil {
		notes := strings.TrimSpace(*update.AdminNotes)
		if notes == "" {
			fields["admin_notes"] = nil
		} else {
			fields["admin_notes"] = notes
		}
	}
	if len(fields) == 0 {
		return s.Get(ctx, id)
	}
	fields["updated_at"] = s.now().UTC()
	if err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, notFoundOr(err, "update report")
	}
	return s.Get(ctx, id)
}

// Delete removes the row, then the photo on a best-effort basis.
func (s *service) Delete(ctx context.Context, id int64) error {
	report, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "load report")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "delete report")
	}
	if report.ImageURL != nil && s.uploader != nil {
		if object := objectFromURL(*report.ImageURL, s.bucket); object != "" {
			if err := s.uploader.DeleteObject(ctx, s.bucket, object); err != nil {
				s.logg.WarnErr(s.logg.WithField(ctx, "report_id", id), "reports.photo_delete_failed", err)
			}
		}
	}
	return nil
}

func trimInput(in SubmitInput) SubmitInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Location = strings.TrimSpace(in.Location)
	in.Description = strings.TrimSpace(in.Description)
	in.Priority = strings.TrimSpace(in.Priority)
	return in
}

func validateSubmit(entry Entry, in SubmitInput) error {
	var missing []string
	if in.Name == "" {
		missing = append(missing, "name")
	}
	if in.Description == "" {
		missing = append(missing, "description")
	}
	if entry == EntryMap {
		if in.Latitude == nil {
			missing = append(missing, "latitude")
		}
		if in.Longitude == nil {
			missing = append(missing, "longitude")
		}
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "required fields are missing").
			WithDetails(map[string]any{"fields": missing})
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return pkgerrors.New(pkgerrors.CodeValidation, "latitude and longitude must be provided together")
	}
	if in.Latitude != nil {
		return validateCoordinates(*in.Latitude, *in.Longitude)
	}
	return nil
}

func validateCoordinates(lat, lng float64) error {
	if !isFinite(lat) || !isFinite(lng) {
		return pkgerrors.New(pkgerrors.CodeValidation, "coordinates must be finite numbers")
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return pkgerrors.New(pkgerrors.CodeValidation, "coordinates are out of range")
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// objectFromURL recovers the object name from a public URL of the form .../<bucket>/<object>.
func objectFromURL(publicURL, bucket string) string {
	marker := "/" + bucket + "/"
	idx := strings.LastIndex(publicURL, marker)
	if idx < 0 {
		return ""
	}
	object := publicURL[idx+len(marker):]
	if !strings.HasPrefix(object, photoPrefix+"/") {
		return ""
	}
	return object
}

func toDTO(r models.MarbleReport) ReportDTO {
	dto := ReportDTO{
		ID:          r.ID,
		Name:        r.Name,
		Email:       r.Email,
		Phone:       r.Phone,
		Location:    r.Location,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		Description: r.Description,
		IsUrgent:    r.IsUrgent,
		Priority:    r.Priority,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.ImageURL != nil {
		dto.ImageURL = *r.ImageURL
	}
	if r.AdminNotes != nil {
		dto.AdminNotes = *r.AdminNotes
	}
	return dto
}

func notFoundOr(err error, action string) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "report not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

package controllers

import (
	"net/http"
	"strings"

	"github.com/grmc/storefront-backend/api/responses"
	"github.com/grmc/storefront-backend/api/validators"
	reportssvc "github.com/grmc/storefront-backend/internal/reports"
	"github.com/grmc/storefront-backend/pkg/logger"
	"github.com/grmc/storefront-backend/pkg/pagination"
)

const reportPhotoField = "photo"

// ReportSubmit accepts the multipart report form for the given entry point.
// The map entry requires latitude and longitude; the form entry does not.
func ReportSubmit(svc reportssvc.Service, entry reportssvc.Entry, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := validators.ParseMultipart(w, r, maxBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lat, err := validators.FormFloat(r, "latitude")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lng, err := validators.FormFloat(r, "longitude")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		file, err := validators.OptionalFile(r, reportPhotoField)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer file.Close()

		input := reportssvc.SubmitInput{
			Name:        validators.FormString(r, "name"),
			Email:       validators.FormString(r, "email"),
			Phone:       validators.FormString(r, "phone"),
			Location:    validators.FormString(r, "location"),
			Description: validators.FormString(r, "description"),
			Latitude:    lat,
			Longitude:   lng,
			IsUrgent:    validators.FormBool(r, "is_urgent"),
			Priority:    validators.FormString(r, "priority"),
		}
		if file != nil {
			input.Photo = &reportssvc.Photo{
				Filename:    file.Filename,
				ContentType: file.ContentType,
				Body:        file.File,
			}
		}

		report, err := svc.Submit(r.Context(), entry, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, report)
	}
}

func GeocodeReverse(svc reportssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lat, err := validators.ParseQueryFloat(r, "lat")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lng, err := validators.ParseQueryFloat(r, "lng")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		name, err := svc.Reverse(r.Context(), lat, lng)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"display_name": name, "lat": lat, "lng": lng})
	}
}

func GeocodeSearch(svc reportssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		places, err := svc.Search(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, places)
	}
}

func AdminReportList(svc reportssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := reportssvc.ListFilter{
			Status: strings.TrimSpace(q.Get("status")),
			Search: strings.TrimSpace(q.Get("q")),
		}
		result, err := svc.List(r.Context(), filter, pagination.FromQuery(q))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AdminReportStats(svc reportssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

func AdminReportDetail(svc reportssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "reportId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		report, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

func AdminReportUpdate(svc reportssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "reportId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload reportssvc.AdminUpdate
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		report, err := svc.Update(r.Context(), id, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

func AdminReportDelete(svc reportssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "reportId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "deleted": true})
	}
}

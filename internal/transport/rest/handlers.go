package rest

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/baechuer/summons/internal/domain"
	"github.com/baechuer/summons/internal/pkg/logger"
	"github.com/baechuer/summons/internal/service"
	"github.com/baechuer/summons/internal/transport/rest/response"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

const defaultMaxImageBytes = 5 << 20

type Handler struct {
	svc           *service.RSVPService
	maxImageBytes int64
}

func NewHandler(svc *service.RSVPService, maxImageBytes int64) *Handler {
	if maxImageBytes <= 0 {
		maxImageBytes = defaultMaxImageBytes
	}
	return &Handler{svc: svc, maxImageBytes: maxImageBytes}
}

// CreateEvent accepts JSON, or multipart with a JSON "payload" field and an
// optional "image" file.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var (
		req createEventRequest
		img *service.ImageUpload
	)

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxImageBytes+(1<<20))
		if err := r.ParseMultipartForm(h.maxImageBytes); err != nil {
			fail(w, r, http.StatusBadRequest, "request.invalid", "invalid multipart body", nil)
			return
		}
		if err := json.Unmarshal([]byte(r.FormValue("payload")), &req); err != nil {
			fail(w, r, http.StatusBadRequest, "request.invalid", "invalid payload", map[string]string{
				"payload": "must be a JSON event",
			})
			return
		}
		file, hdr, err := r.FormFile("image")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			fail(w, r, http.StatusBadRequest, "request.invalid", "invalid image", nil)
			return
		default:
			defer file.Close()
			if hdr.Size > h.maxImageBytes {
				fail(w, r, http.StatusBadRequest, "request.invalid", "image too large", map[string]string{
					"image": "too large",
				})
				return
			}
			img = &service.ImageUpload{Body: file, ContentType: hdr.Header.Get("Content-Type"), Size: hdr.Size}
		}
	} else if err := render.DecodeJSON(r.Body, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid body", nil)
		return
	}

	if meta := validateRequest(req); meta != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "validation failed", meta)
		return
	}

	res, err := h.svc.CreateEvent(r.Context(), traceIDFrom(r), req.input(), img)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.DataWithWarnings(w, http.StatusCreated, toEventResponse(res.Event), res.Warnings)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	ev, err := h.svc.GetEvent(r.Context(), eventID)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, toEventResponse(ev))
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	var req updateEventRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid body", nil)
		return
	}
	if meta := validateRequest(req); meta != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "validation failed", meta)
		return
	}

	ev, err := h.svc.UpdateEvent(r.Context(), traceIDFrom(r), eventID, req.patch())
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, toEventResponse(ev))
}

func (h *Handler) CancelEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	ev, err := h.svc.CancelEvent(r.Context(), traceIDFrom(r), eventID)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, toEventResponse(ev))
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	s, err := h.svc.GetStats(r.Context(), eventID)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, toStatsResponse(s))
}

func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	var req respondRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid body", nil)
		return
	}
	if meta := validateRequest(req); meta != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "validation failed", meta)
		return
	}

	res, err := h.svc.Respond(r.Context(), traceIDFrom(r), eventID, service.RespondInput{
		Name:   req.Name,
		Email:  req.Email,
		Gender: req.Gender,
		Status: req.Status,
	})
	if err != nil {
		handleErr(w, r, err)
		return
	}

	body := map[string]any{
		"decision": toDecisionResponse(res.Decision),
		"rsvp":     nil,
	}
	if res.RSVP == nil {
		// full event or quota: not an error, the client offers the waitlist
		response.Data(w, http.StatusOK, body)
		return
	}
	body["rsvp"] = toRSVPResponse(*res.RSVP)
	response.DataWithWarnings(w, http.StatusCreated, body, res.Warnings)
}

func (h *Handler) ListRSVPs(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}

	var filter domain.RSVPFilter
	if s := strings.TrimSpace(r.URL.Query().Get("status")); s != "" {
		st, ok := domain.ParseRSVPStatus(s)
		if !ok {
			fail(w, r, http.StatusBadRequest, "request.invalid", "invalid status", map[string]string{"status": "must be yes or no"})
			return
		}
		filter.Status = st
	}
	if s := strings.TrimSpace(r.URL.Query().Get("gender")); s != "" {
		g, ok := domain.ParseGender(s)
		if !ok {
			fail(w, r, http.StatusBadRequest, "request.invalid", "invalid gender", map[string]string{"gender": "must be male, female or other"})
			return
		}
		filter.Gender = g
	}

	rows, err := h.svc.ListRSVPs(r.Context(), eventID, filter)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, map[string]any{"items": toRSVPResponses(rows)})
}

func (h *Handler) ListPublicRSVPs(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	rows, err := h.svc.ListPublicRSVPs(r.Context(), eventID)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, map[string]any{"items": toPublicRSVPResponses(rows)})
}

func (h *Handler) RemoveGuest(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	rsvpID, ok := pathUUID(w, r, "rsvpID")
	if !ok {
		return
	}

	out, err := h.svc.RemoveConfirmedGuest(r.Context(), traceIDFrom(r), eventID, rsvpID)
	if err != nil {
		handleErr(w, r, err)
		return
	}

	body := map[string]any{
		"removed":  toRSVPResponse(out.Removed),
		"promoted": nil,
		"stats":    toStatsResponse(out.Stats),
	}
	if p := out.Promoted; p != nil {
		body["promoted"] = map[string]any{
			"entry": toWaitlistEntryResponse(p.Entry),
			"rsvp":  toRSVPResponse(p.RSVP),
		}
	}
	response.DataWithWarnings(w, http.StatusOK, body, out.Warnings)
}

func (h *Handler) ListWaitlist(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	entries, err := h.svc.ListWaitlist(r.Context(), eventID)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, map[string]any{"items": toWaitlistResponses(entries)})
}

func (h *Handler) JoinWaitlist(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	var req waitlistRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid body", nil)
		return
	}
	if meta := validateRequest(req); meta != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "validation failed", meta)
		return
	}

	res, err := h.svc.JoinWaitlist(r.Context(), traceIDFrom(r), eventID, service.WaitlistInput{
		Name:   req.Name,
		Email:  req.Email,
		Gender: req.Gender,
	})
	if err != nil {
		handleErr(w, r, err)
		return
	}

	body := map[string]any{"status": "waitlisted"}
	if res.RSVP != nil {
		body["status"] = "confirmed"
		body["rsvp"] = toRSVPResponse(*res.RSVP)
	} else {
		body["entry"] = toWaitlistEntryResponse(*res.Entry)
	}
	response.DataWithWarnings(w, http.StatusCreated, body, res.Warnings)
}

func (h *Handler) RemoveWaitlistEntry(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	entryID, ok := pathUUID(w, r, "entryID")
	if !ok {
		return
	}
	removed, err := h.svc.RemoveWaitlistEntry(r.Context(), traceIDFrom(r), eventID, entryID)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, map[string]any{"removed": toWaitlistEntryResponse(removed)})
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	response.Data(w, http.StatusOK, map[string]string{"status": "ok"})
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid "+param, map[string]string{
			param: "must be a valid uuid",
		})
		return uuid.Nil, false
	}
	return id, true
}

func handleErr(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		fail(w, r, http.StatusBadRequest, "request.invalid", "validation failed", verr.Fields)

	case errors.Is(err, domain.ErrEventNotFound):
		fail(w, r, http.StatusNotFound, "event.not_found", err.Error(), nil)
	case errors.Is(err, domain.ErrRSVPNotFound):
		fail(w, r, http.StatusNotFound, "rsvp.not_found", err.Error(), nil)
	case errors.Is(err, domain.ErrWaitlistEntryNotFound):
		fail(w, r, http.StatusNotFound, "waitlist.not_found", err.Error(), nil)

	case errors.Is(err, domain.ErrCapacityExceeded):
		// lost the race for the last seat; the client should offer the waitlist
		fail(w, r, http.StatusConflict, "capacity.exceeded", err.Error(), map[string]string{
			"next": "join_waitlist",
		})
	case errors.Is(err, domain.ErrAlreadyResponded), errors.Is(err, domain.ErrAlreadyWaitlisted):
		fail(w, r, http.StatusConflict, "state_already_reached", err.Error(), nil)
	case errors.Is(err, domain.ErrNotConfirmed):
		fail(w, r, http.StatusConflict, "rsvp.not_confirmed", err.Error(), nil)

	case errors.Is(err, domain.ErrEventClosed):
		fail(w, r, http.StatusGone, "event.closed", err.Error(), nil)
	case errors.Is(err, domain.ErrDeadlinePassed):
		fail(w, r, http.StatusGone, "rsvp.deadline_passed", err.Error(), nil)

	default:
		logger.WithCtx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("unhandled error")
		fail(w, r, http.StatusInternalServerError, "internal", "internal error", nil)
	}
}

func fail(w http.ResponseWriter, r *http.Request, status int, code, message string, meta map[string]string) {
	response.Fail(w, status, code, message, meta, traceIDFrom(r))
}

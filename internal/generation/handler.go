package generation

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/restyle-platform/restyle/internal/api"
	"github.com/restyle-platform/restyle/internal/audit"
	"github.com/restyle-platform/restyle/internal/entitlement"
	"github.com/restyle-platform/restyle/internal/identity"
	inats "github.com/restyle-platform/restyle/internal/nats"
	"github.com/restyle-platform/restyle/internal/profiles"
)

const (
	maxUploadBytes    = 32 << 20 // whole multipart body
	roomPhotoField    = "roomImage"
	styleField        = "style"
	roomTypeField     = "roomType"
	descriptionField  = "description"
	ceilingPhotoField = "ceilingMaterial"
	floorPhotoField   = "floorMaterial"
	wallPhotoField    = "wallMaterial"
)

var materialFields = []struct {
	field    string
	position MaterialPosition
}{
	{ceilingPhotoField, PositionCeiling},
	{floorPhotoField, PositionFloor},
	{wallPhotoField, PositionWall},
}

// Handler exposes the generation endpoint. The identity middleware runs
// before it, so every request here carries a verified UID.
type Handler struct {
	svc         *Service
	profileRepo profiles.Repository
	meter       *entitlement.Service
	auditor     *audit.Publisher
}

func NewHandler(svc *Service, profileRepo profiles.Repository, meter *entitlement.Service, auditor *audit.Publisher) *Handler {
	return &Handler{svc: svc, profileRepo: profileRepo, meter: meter, auditor: auditor}
}

// Generate handles POST /api/v1/generations.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	ident := identity.FromContext(r.Context())
	if ident == nil {
		api.HandleError(w, api.ErrUnauthenticated)
		return
	}

	profile, err := h.profileRepo.GetOrCreate(r.Context(), ident.UID)
	if err != nil {
		slog.Error("loading profile for generation", "uid", ident.UID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	now := time.Now()
	if !h.meter.Allowed(profile, now) {
		h.auditor.Publish(r.Context(), inats.AuditEvent{
			OwnerUID:     ident.UID,
			EventType:    inats.EventGenerationDenied,
			Severity:     "info",
			ResourceType: "generation",
			Details:      "monthly allowance exhausted",
			Timestamp:    now,
		})
		api.HandleError(w, api.ErrQuotaExceeded)
		return
	}

	req, err := parseMultipart(r)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	result, err := h.svc.Generate(r.Context(), req)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	// Best effort: a failed counter write never withholds the image.
	h.meter.RecordGeneration(r.Context(), profile, now)

	h.auditor.Publish(r.Context(), inats.AuditEvent{
		OwnerUID:     ident.UID,
		EventType:    inats.EventGenerationCompleted,
		Severity:     "info",
		ResourceType: "generation",
		Details:      fmt.Sprintf("style=%s room=%s fallback=%t", req.Style, req.RoomType, result.Analysis.Fallback),
		Timestamp:    time.Now(),
	})

	api.JSON(w, http.StatusOK, result)
}

func parseMultipart(r *http.Request) (*Request, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, api.NewBadRequestError("invalid multipart body")
	}

	req := &Request{
		Style:       formValueOr(r, styleField, DefaultStyle),
		RoomType:    formValueOr(r, roomTypeField, DefaultRoomType),
		Description: r.FormValue(descriptionField),
	}

	data, mime, err := readFilePart(r, roomPhotoField)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, api.NewBadRequestError("room photo is required")
	}
	req.RoomPhoto = data
	req.RoomPhotoMIME = mime

	for _, mf := range materialFields {
		data, mime, err := readFilePart(r, mf.field)
		if err != nil {
			return nil, err
		}
		if data == nil {
			continue
		}
		req.Materials = append(req.Materials, MaterialPhoto{
			Position: mf.position,
			Data:     data,
			MIMEType: mime,
		})
	}

	return req, nil
}

// readFilePart returns (nil, "", nil) when the field is absent.
func readFilePart(r *http.Request, field string) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, "", nil
		}
		return nil, "", api.NewBadRequestError("unreadable file field: " + field)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", api.NewBadRequestError("unreadable file field: " + field)
	}

	mime := header.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/jpeg"
	}
	return data, mime, nil
}

func formValueOr(r *http.Request, field, fallback string) string {
	if v := r.FormValue(field); v != "" {
		return v
	}
	return fallback
}

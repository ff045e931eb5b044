package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/omarvides/restyle-backend/api/responses"
	"github.com/omarvides/restyle-backend/api/validators"
	"github.com/omarvides/restyle-backend/internal/generations"
	"github.com/omarvides/restyle-backend/pkg/enums"
	pkgerrors "github.com/omarvides/restyle-backend/pkg/errors"
	"github.com/omarvides/restyle-backend/pkg/logger"
)

// GenerationService is the surface the generation controllers depend on.
type GenerationService interface {
	Generate(ctx context.Context, userID uuid.UUID, input generations.GenerateInput) (*generations.Result, error)
	Edit(ctx context.Context, userID uuid.UUID, input generations.EditInput) (*generations.Result, error)
	Variations(ctx context.Context, userID, parentID uuid.UUID, count int) ([]generations.Result, error)
	List(ctx context.Context, userID uuid.UUID, params generations.ListParams) (*generations.ListResult, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type generateRequest struct {
	Image       string `json:"image" validate:"required,url"`
	Prompt      string `json:"prompt"`
	Style       string `json:"style"`
	RoomType    string `json:"room_type"`
	Seed        *int64 `json:"seed"`
	AspectRatio string `json:"aspect_ratio"`
}

type editRequest struct {
	Purpose     string `json:"purpose" validate:"required"`
	Image       string `json:"image" validate:"required,url"`
	Prompt      string `json:"prompt" validate:"required"`
	Seed        *int64 `json:"seed"`
	AspectRatio string `json:"aspect_ratio"`
}

type variationsRequest struct {
	Count int `json:"count" validate:"omitempty,min=1,max=4"`
}

// GenerationCreate handles the base redesign flow.
func GenerationCreate(svc GenerationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "generation service unavailable"))
			return
		}

		uid, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload generateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Generate(r.Context(), uid, generations.GenerateInput{
			Image:       payload.Image,
			Prompt:      payload.Prompt,
			Style:       payload.Style,
			RoomType:    payload.RoomType,
			Seed:        payload.Seed,
			AspectRatio: payload.AspectRatio,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"result": result})
	}
}

// GenerationEdit handles the purpose-scoped edit flows (furniture, magic, colors).
func GenerationEdit(svc GenerationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "generation service unavailable"))
			return
		}

		uid, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload editRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		purpose, err := enums.ParseGenerationPurpose(strings.TrimSpace(payload.Purpose))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid purpose"))
			return
		}

		result, err := svc.Edit(r.Context(), uid, generations.EditInput{
			Purpose:     purpose,
			Image:       payload.Image,
			Prompt:      payload.Prompt,
			Seed:        payload.Seed,
			AspectRatio: payload.AspectRatio,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"result": result})
	}
}

// GenerationVariations fans out parallel re-dispatches of an owned generation.
func GenerationVariations(svc GenerationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "generation service unavailable"))
			return
		}

		uid, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		parentID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid generation id"))
			return
		}

		var payload variationsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		results, err := svc.Variations(r.Context(), uid, parentID, payload.Count)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"variations": results})
	}
}

// GenerationList returns the caller's history, newest first.
func GenerationList(svc GenerationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "generation service unavailable"))
			return
		}

		uid, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), uid, generations.ListParams{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// GenerationDelete removes a generation and its stored artifact.
func GenerationDelete(svc GenerationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "generation service unavailable"))
			return
		}

		uid, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid generation id"))
			return
		}

		if err := svc.Delete(r.Context(), uid, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

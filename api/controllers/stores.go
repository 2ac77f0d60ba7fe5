package controllers

import (
	"net/http"

	"github.com/angelmondragon/marketplace-backend/api/responses"
	"github.com/angelmondragon/marketplace-backend/api/validators"
	"github.com/angelmondragon/marketplace-backend/internal/stores"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

const maxStoreNameLen = 120

type createStoreRequest struct {
	Name string `json:"name" validate:"required,max=120"`
	Slug string `json:"slug" validate:"required,max=64"`
}

type updateStoreRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// StoreCreate opens a store owned by the calling business user.
func StoreCreate(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "store")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var body createStoreRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store, err := svc.Create(r.Context(), actor, stores.CreateStoreInput{
			Name: validators.SanitizeText(body.Name, maxStoreNameLen),
			Slug: body.Slug,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, store)
	}
}

// StoreList returns the caller's stores.
func StoreList(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "store")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		list, err := svc.ListMine(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"stores": list})
	}
}

// StoreUpdate toggles is_active; deactivation cascades to the store's products.
func StoreUpdate(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "store")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		storeID, err := validators.ParseURLUUID(r, "storeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateStoreRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store, err := svc.SetActive(r.Context(), actor, storeID, *body.IsActive)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, store)
	}
}

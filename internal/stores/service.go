package stores

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/authz"
	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/payloads"
)

const slugConstraint = "ux_stores_slug"

// ProductDeactivator soft-deactivates every product of a store inside the caller's transaction.
type ProductDeactivator interface {
	DeactivateByStore(ctx context.Context, tx *gorm.DB, storeID uuid.UUID) (int64, error)
}

// Service exposes store operations.
type Service interface {
	Create(ctx context.Context, actor authz.Actor, input CreateStoreInput) (*StoreDTO, error)
	SetActive(ctx context.Context, actor authz.Actor, storeID uuid.UUID, active bool) (*StoreDTO, error)
	ListMine(ctx context.Context, actor authz.Actor) ([]StoreDTO, error)
}

// ServiceParams wires the store service.
type ServiceParams struct {
	DB       db.TxRunner
	Repo     *Repository
	Products ProductDeactivator
	Outbox   outbox.Emitter
	Logger   *logger.Logger
}

type service struct {
	db       db.TxRunner
	repo     *Repository
	products ProductDeactivator
	outbox   outbox.Emitter
	logg     *logger.Logger
}

// NewService builds a store service with the provided collaborators.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("store repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product deactivator required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		db:       params.DB,
		repo:     params.Repo,
		products: params.Products,
		outbox:   params.Outbox,
		logg:     logg,
	}, nil
}

func (s *service) Create(ctx context.Context, actor authz.Actor, input CreateStoreInput) (*StoreDTO, error) {
	if err := authz.Require(actor, authz.CapCreateStore); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	slug := NormalizeSlug(input.Slug)
	if !ValidSlug(slug) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug must be 3-64 lowercase letters, digits or dashes").
			WithDetails(map[string]any{"slug": input.Slug})
	}

	store := &models.Store{
		OwnerID:  actor.UserID,
		Name:     name,
		Slug:     slug,
		IsActive: true,
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindBySlug(ctx, slug); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "slug already taken").
				WithDetails(map[string]any{"slug": slug})
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup store slug")
		}
		if err := repo.Create(ctx, store); err != nil {
			if db.IsUniqueViolation(err, slugConstraint) {
				return pkgerrors.New(pkgerrors.CodeConflict, "slug already taken").
					WithDetails(map[string]any{"slug": slug})
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create store")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithStoreID(ctx, store.ID.String())
	s.logg.Info(ctx, "store.created")
	return FromModel(store), nil
}

func (s *service) SetActive(ctx context.Context, actor authz.Actor, storeID uuid.UUID, active bool) (*StoreDTO, error) {
	if err := authz.Require(actor, authz.CapManageStore); err != nil {
		return nil, err
	}

	var (
		result      *models.Store
		deactivated int64
	)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		store, err := repo.FindByIDForUpdate(ctx, storeID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load store")
		}
		if err := authz.AuthorizeStoreOwner(actor, authz.CapManageStore, store.OwnerID); err != nil {
			return err
		}
		result = store
		if store.IsActive == active {
			return nil
		}

		if err := repo.SetActive(ctx, store.ID, active); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update store")
		}
		store.IsActive = active
		if active {
			return nil
		}

		deactivated, err = s.products.DeactivateByStore(ctx, tx, store.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate store products")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStoreDeactivated,
			AggregateType: enums.AggregateStore,
			AggregateID:   store.ID,
			Actor:         actor.Ref(),
			Data: payloads.StoreDeactivatedEvent{
				StoreID:             store.ID,
				OwnerID:             store.OwnerID,
				ProductsDeactivated: deactivated,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(s.logg.WithStoreID(ctx, storeID.String()), map[string]any{
		"is_active":            active,
		"products_deactivated": deactivated,
	})
	s.logg.Info(ctx, "store.active_changed")
	return FromModel(result), nil
}

func (s *service) ListMine(ctx context.Context, actor authz.Actor) ([]StoreDTO, error) {
	if err := authz.Require(actor, authz.CapManageStore); err != nil {
		return nil, err
	}
	rows, err := s.repo.FindByOwner(ctx, actor.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stores")
	}
	out := make([]StoreDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

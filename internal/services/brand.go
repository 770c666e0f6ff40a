package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	repos "github.com/yungbote/podforge-backend/internal/data/repos/content"
	types "github.com/yungbote/podforge-backend/internal/domain/content"
	"github.com/yungbote/podforge-backend/internal/pkg/dbctx"
	"github.com/yungbote/podforge-backend/internal/platform/logger"
)

type BrandProfileInput struct {
	Name       string   `json:"name"`
	Tone       string   `json:"tone"`
	Audience   string   `json:"audience"`
	ValueProps []string `json:"value_props"`
	Platforms  []string `json:"platforms"`
	Guidelines string   `json:"guidelines"`
}

// BrandService is plain CRUD over brand profiles. The pipeline reads
// profiles directly through the repo; nothing here is on the run path.
type BrandService interface {
	Create(ctx context.Context, input BrandProfileInput) (*types.BrandProfile, error)
	Get(ctx context.Context, id uuid.UUID) (*types.BrandProfile, error)
	List(ctx context.Context) ([]*types.BrandProfile, error)
	Update(ctx context.Context, id uuid.UUID, input BrandProfileInput) (*types.BrandProfile, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type brandService struct {
	log    *logger.Logger
	brands repos.BrandProfileRepo
}

func NewBrandService(baseLog *logger.Logger, brands repos.BrandProfileRepo) BrandService {
	return &brandService{
		log:    baseLog.With("service", "BrandService"),
		brands: brands,
	}
}

func (s *brandService) Create(ctx context.Context, input BrandProfileInput) (*types.BrandProfile, error) {
	const op = "services.BrandService.Create"
	if strings.TrimSpace(input.Name) == "" {
		return nil, types.NewError(types.CodeValidation, op, "name is required", nil)
	}
	profile := &types.BrandProfile{
		Name:       strings.TrimSpace(input.Name),
		Tone:       input.Tone,
		Audience:   input.Audience,
		ValueProps: encodeStringList(input.ValueProps),
		Platforms:  encodeStringList(input.Platforms),
		Guidelines: input.Guidelines,
	}
	created, err := s.brands.Create(dbctx.Context{Ctx: ctx}, []*types.BrandProfile{profile})
	if err != nil {
		return nil, err
	}
	s.log.Info("Brand profile created", "brand_profile_id", created[0].ID)
	return created[0], nil
}

func (s *brandService) Get(ctx context.Context, id uuid.UUID) (*types.BrandProfile, error) {
	return s.brands.GetByID(dbctx.Context{Ctx: ctx}, id)
}

func (s *brandService) List(ctx context.Context) ([]*types.BrandProfile, error) {
	return s.brands.List(dbctx.Context{Ctx: ctx})
}

// Update replaces the whole profile; voice settings are small enough
// that partial updates are not worth the pointer plumbing.
func (s *brandService) Update(ctx context.Context, id uuid.UUID, input BrandProfileInput) (*types.BrandProfile, error) {
	const op = "services.BrandService.Update"
	if strings.TrimSpace(input.Name) == "" {
		return nil, types.NewError(types.CodeValidation, op, "name is required", nil)
	}
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.brands.GetByID(dbc, id); err != nil {
		return nil, err
	}
	if err := s.brands.UpdateFields(dbc, id, map[string]interface{}{
		"name":        strings.TrimSpace(input.Name),
		"tone":        input.Tone,
		"audience":    input.Audience,
		"value_props": encodeStringList(input.ValueProps),
		"platforms":   encodeStringList(input.Platforms),
		"guidelines":  input.Guidelines,
	}); err != nil {
		return nil, err
	}
	return s.brands.GetByID(dbc, id)
}

func (s *brandService) Delete(ctx context.Context, id uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.brands.GetByID(dbc, id); err != nil {
		return err
	}
	return s.brands.Delete(dbc, id)
}

func encodeStringList(values []string) datatypes.JSON {
	if len(values) == 0 {
		return nil
	}
	raw, _ := json.Marshal(values)
	return datatypes.JSON(raw)
}

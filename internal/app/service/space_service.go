package service

import (
	"context"
	"impactlab/internal/common"
	"impactlab/internal/domain/model"
	"impactlab/internal/domain/repository"
	"impactlab/internal/platform/logging"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const (
	DefaultRoomsPageSize = 6
	MaxRoomsPageSize     = 50
)

type SpaceService struct {
	spaceRepo repository.SpaceRepository
	logger    logging.Logger
}

func NewSpaceService(spaceRepo repository.SpaceRepository, logger logging.Logger) *SpaceService {
	return &SpaceService{
		spaceRepo: spaceRepo,
		logger:    logger.With("component", "spaces"),
	}
}

// SpaceRequest is the admin payload for creating or replacing a space.
type SpaceRequest struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Type         model.SpaceType   `json:"type"`
	Capacity     int               `json:"capacity"`
	PricePerHour float64           `json:"pricePerHour"`
	Amenities    []string          `json:"amenities"`
	Images       []string          `json:"images"`
	Status       model.SpaceStatus `json:"status,omitempty"`
}

func (req *SpaceRequest) validate() error {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Description) == "" {
		return common.Errorf("name and description are required: %w", common.ErrValidation)
	}
	if !req.Type.Valid() {
		return common.Errorf("unknown space type %q: %w", req.Type, common.ErrValidation)
	}
	if req.Capacity < 1 {
		return common.Errorf("capacity must be at least 1: %w", common.ErrValidation)
	}
	if req.PricePerHour < 0 {
		return common.Errorf("price per hour cannot be negative: %w", common.ErrValidation)
	}
	if req.Status == "" {
		req.Status = model.SpaceStatusActive
	}
	if !req.Status.Valid() {
		return common.Errorf("unknown space status %q: %w", req.Status, common.ErrValidation)
	}
	if slug.Make(req.Name) == "" {
		return common.Errorf("name must contain letters or digits: %w", common.ErrValidation)
	}
	return nil
}

func cleanList(list []string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (s *SpaceService) CreateSpace(ctx context.Context, req SpaceRequest) (*model.Space, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	space := &model.Space{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		Slug:         slug.Make(req.Name),
		Description:  req.Description,
		Type:         req.Type,
		Capacity:     req.Capacity,
		PricePerHour: req.PricePerHour,
		Amenities:    cleanList(req.Amenities),
		Images:       cleanList(req.Images),
		Status:       req.Status,
	}
	if err := s.spaceRepo.Create(ctx, space); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "space created", "space_id", space.ID, "slug", space.Slug)
	return space, nil
}

// UpdateSpace replaces every editable field of the space. The slug follows
// the name.
func (s *SpaceService) UpdateSpace(ctx context.Context, id string, req SpaceRequest) (*model.Space, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	space, err := s.spaceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	space.Name = strings.TrimSpace(req.Name)
	space.Slug = slug.Make(req.Name)
	space.Description = req.Description
	space.Type = req.Type
	space.Capacity = req.Capacity
	space.PricePerHour = req.PricePerHour
	space.Amenities = cleanList(req.Amenities)
	space.Images = cleanList(req.Images)
	space.Status = req.Status

	if err := s.spaceRepo.Update(ctx, space); err != nil {
		return nil, err
	}
	return space, nil
}

func (s *SpaceService) DeleteSpace(ctx context.Context, id string) error {
	if err := s.spaceRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info(ctx, "space deleted", "space_id", id)
	return nil
}

// GetRoom returns an active space by slug. Inactive spaces are reported as
// not found.
func (s *SpaceService) GetRoom(ctx context.Context, spaceSlug string) (*model.Space, error) {
	space, err := s.spaceRepo.FindBySlug(ctx, spaceSlug)
	if err != nil {
		return nil, err
	}
	if space.Status != model.SpaceStatusActive {
		return nil, common.ErrNotFound
	}
	return space, nil
}

type ListRoomsQuery struct {
	Page      int
	Limit     int
	Search    string
	Type      model.SpaceType
	Capacity  int
	PriceMax  *float64
	Amenities []string
}

type RoomPage struct {
	Rooms      []model.Space `json:"rooms"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	TotalPages int           `json:"totalPages"`
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultRoomsPageSize
	}
	if limit > MaxRoomsPageSize {
		limit = MaxRoomsPageSize
	}
	// Past this page the offset would overflow.
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}
	return page, limit
}

func pageOffset(page, limit int) int {
	return (page - 1) * limit
}

// pageCount is never below 1, so an empty listing still has a first page.
func pageCount(total, limit int) int {
	n := (total + limit - 1) / limit
	if n < 1 {
		return 1
	}
	return n
}

func newRoomPage(rooms []model.Space, total, page, limit int) *RoomPage {
	return &RoomPage{Rooms: rooms, Total: total, Page: page, Limit: limit, TotalPages: pageCount(total, limit)}
}

// ListRooms is the public catalog: active spaces only, filtered and paged.
func (s *SpaceService) ListRooms(ctx context.Context, q ListRoomsQuery) (*RoomPage, error) {
	if q.Type != "" && !q.Type.Valid() {
		return nil, common.Errorf("unknown space type %q: %w", q.Type, common.ErrValidation)
	}
	if q.Capacity < 0 || (q.PriceMax != nil && *q.PriceMax < 0) {
		return nil, common.Errorf("capacity and priceMax cannot be negative: %w", common.ErrValidation)
	}
	page, limit := normalizePage(q.Page, q.Limit)

	filter := model.SpaceFilter{
		Search:      strings.TrimSpace(q.Search),
		Type:        q.Type,
		MinCapacity: q.Capacity,
		MaxPrice:    q.PriceMax,
		Amenities:   cleanList(q.Amenities),
		Status:      model.SpaceStatusActive,
	}
	rooms, total, err := s.spaceRepo.List(ctx, limit, pageOffset(page, limit), filter)
	if err != nil {
		s.logger.Error(ctx, "listing rooms failed", "error", err)
		return nil, err
	}
	return newRoomPage(rooms, total, page, limit), nil
}

// ListSpaces is the admin view and includes inactive spaces.
func (s *SpaceService) ListSpaces(ctx context.Context, page, limit int) (*RoomPage, error) {
	page, limit = normalizePage(page, limit)
	spaces, total, err := s.spaceRepo.List(ctx, limit, pageOffset(page, limit), model.SpaceFilter{})
	if err != nil {
		return nil, err
	}
	return newRoomPage(spaces, total, page, limit), nil
}

package profile

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
	"github.com/jwalitptl/practice-api/pkg/format"
)

type Service struct {
	repo repository.ProfileRepository
	now  func() time.Time
}

func NewService(repo repository.ProfileRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NotFound("profile", err)
		}
		return nil, err
	}
	return p, nil
}

// Update applies the non-nil fields. Empty optional strings clear the value.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, req *model.UpdateProfileRequest) (*model.Profile, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		name, ok := format.Name(*req.FullName)
		if !ok {
			return nil, apperrors.Validation("full_name must have at least 2 characters")
		}
		p.FullName = name
	}
	if req.CRM != nil {
		p.CRM = optional(req.CRM)
	}
	if req.Specialty != nil {
		p.Specialty = optional(req.Specialty)
	}
	if req.ClinicName != nil {
		p.ClinicName = optional(req.ClinicName)
	}
	if req.CustomTitle != nil {
		p.CustomTitle = optional(req.CustomTitle)
	}
	if req.Phone != nil {
		p.Phone = format.PhonePtr(optional(req.Phone))
	}

	return p, s.save(ctx, p)
}

func (s *Service) UpdatePreferences(ctx context.Context, userID uuid.UUID, req *model.UpdatePreferencesRequest) (*model.Profile, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.ThemePreference != nil {
		p.ThemePreference = *req.ThemePreference
	}
	if req.CompactMode != nil {
		p.CompactMode = *req.CompactMode
	}
	if req.CustomTitle != nil {
		p.CustomTitle = optional(req.CustomTitle)
	}

	return p, s.save(ctx, p)
}

func (s *Service) save(ctx context.Context, p *model.Profile) error {
	p.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, p); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NotFound("profile", err)
		}
		return err
	}
	return nil
}

func optional(v *string) *string {
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

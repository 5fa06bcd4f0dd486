package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"linkrental/internal/caching"
	"linkrental/internal/common"
	"linkrental/internal/config"
	"linkrental/internal/lifecycle"
	"linkrental/internal/models"
	"linkrental/internal/repositories"
	"linkrental/internal/slug"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// MaxSlugAttempts bounds how many fresh suffixes Submit tries before giving up.
const MaxSlugAttempts = 8

const (
	maxNameLength        = 200
	maxEmailLength       = 254
	maxPhoneLength       = 50
	maxDescriptionLength = 5000
	maxLogoLength        = 2048
	maxServices          = 50
	maxSocialLinks       = 20
)

type RentalService interface {
	Submit(ctx context.Context, req *models.CreateRentalRequest) (*models.RentalRequest, error)
	Decide(ctx context.Context, id uuid.UUID, approved bool) (*models.RentalRequest, error)
	Resolve(ctx context.Context, slug string) (*models.PublicRentalView, error)
	GetRequest(ctx context.Context, id uuid.UUID) (*models.RentalRequest, error)
	ListRequests(ctx context.Context, filter *models.RentalStatus) ([]*models.RentalRequest, error)
	ListActiveRentals(ctx context.Context) ([]*models.RentalRequest, error)
	Stats(ctx context.Context) (map[models.RentalStatus]int64, error)
}

type rentalService struct {
	rentalRepo repositories.RentalRepository
	slugs      slug.Generator
	catalog    *config.Catalog
	cacheSvc   caching.CacheService
	archiveSvc ArchiveService
	clock      clockwork.Clock
	logger     *zap.Logger
	cacheTTL   time.Duration
}

// NewRentalService wires the rental lifecycle. cacheSvc and archiveSvc may be nil.
func NewRentalService(
	rentalRepo repositories.RentalRepository,
	slugs slug.Generator,
	catalog *config.Catalog,
	cacheSvc caching.CacheService,
	archiveSvc ArchiveService,
	clock clockwork.Clock,
	logger *zap.Logger,
	cacheTTL time.Duration,
) RentalService {
	return &rentalService{
		rentalRepo: rentalRepo,
		slugs:      slugs,
		catalog:    catalog,
		cacheSvc:   cacheSvc,
		archiveSvc: archiveSvc,
		clock:      clock,
		logger:     logger,
		cacheTTL:   cacheTTL,
	}
}

// now is truncated to the store's timestamp precision so returned records match stored ones.
func (s *rentalService) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

func (s *rentalService) Submit(ctx context.Context, req *models.CreateRentalRequest) (*models.RentalRequest, error) {
	rental, err := s.buildRental(req)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= MaxSlugAttempts; attempt++ {
		rental.ID = uuid.New()
		rental.Slug = s.slugs.Generate(rental.BusinessName)

		err := s.rentalRepo.Create(ctx, rental)
		if err == nil {
			s.logger.Info("Rental request submitted",
				zap.String("id", rental.ID.String()),
				zap.String("slug", rental.Slug),
				zap.String("duration", rental.Duration),
				zap.Int("attempt", attempt))
			s.archive(ctx, rental)
			return rental, nil
		}
		if !errors.Is(err, common.ErrSlugTaken) {
			return nil, err
		}
		s.logger.Debug("Slug collision, retrying", zap.String("slug", rental.Slug), zap.Int("attempt", attempt))
	}

	return nil, fmt.Errorf("no free slug for %q after %d attempts: %w", rental.BusinessName, MaxSlugAttempts, common.ErrSlugTaken)
}

func (s *rentalService) buildRental(req *models.CreateRentalRequest) (*models.RentalRequest, error) {
	if req == nil {
		return nil, common.NewValidationError("body", "request body is required")
	}
	if err := common.ValidateRequiredString(&req.BusinessName, "businessName", maxNameLength); err != nil {
		return nil, err
	}
	if err := common.ValidateRequiredString(&req.ContactEmail, "contactEmail", maxEmailLength); err != nil {
		return nil, err
	}
	if err := common.ValidateRequiredString(&req.ContactPhone, "contactPhone", maxPhoneLength); err != nil {
		return nil, err
	}

	option, ok := s.catalog.LookupDuration(req.Duration)
	if !ok {
		keys := make([]string, len(s.catalog.Durations))
		for i, d := range s.catalog.Durations {
			keys[i] = d.Key
		}
		return nil, common.NewValidationError("duration", "duration must be one of: %s", strings.Join(keys, ", "))
	}

	data, err := s.normalizeBusinessData(req.BusinessData)
	if err != nil {
		return nil, err
	}

	return &models.RentalRequest{
		BusinessName:  req.BusinessName,
		ContactEmail:  req.ContactEmail,
		ContactPhone:  req.ContactPhone,
		Duration:      option.Key,
		DurationType:  option.Type,
		DurationValue: option.Value,
		Price:         option.Price,
		BusinessData:  data,
		Status:        models.StatusPending,
		RequestDate:   s.now(),
	}, nil
}

func (s *rentalService) normalizeBusinessData(in models.BusinessData) (models.BusinessData, error) {
	out := models.BusinessData{
		Description: in.Description,
		Logo:        in.Logo,
		Services:    []string{},
		SocialLinks: map[string]string{},
	}
	if err := common.ValidateOptionalString(&out.Description, "businessData.description", maxDescriptionLength); err != nil {
		return out, err
	}
	if err := common.ValidateOptionalString(&out.Logo, "businessData.logo", maxLogoLength); err != nil {
		return out, err
	}

	theme, ok := s.catalog.ResolveTheme(in.Theme)
	if !ok {
		return out, common.NewValidationError("businessData.theme", "theme must be one of: %s", strings.Join(s.catalog.Themes, ", "))
	}
	out.Theme = theme

	for _, svc := range in.Services {
		if svc = strings.TrimSpace(svc); svc != "" {
			out.Services = append(out.Services, svc)
		}
	}
	if len(out.Services) > maxServices {
		return out, common.NewValidationError("businessData.services", "at most %d services are allowed", maxServices)
	}

	if len(in.SocialLinks) > maxSocialLinks {
		return out, common.NewValidationError("businessData.socialLinks", "at most %d social links are allowed", maxSocialLinks)
	}
	for platform, url := range in.SocialLinks {
		platform = strings.ToLower(strings.TrimSpace(platform))
		url = strings.TrimSpace(url)
		if platform == "" || url == "" {
			return out, common.NewValidationError("businessData.socialLinks", "social links need a platform and a URL")
		}
		if _, dup := out.SocialLinks[platform]; dup {
			return out, common.NewValidationError("businessData.socialLinks", "platform %q is listed twice", platform)
		}
		out.SocialLinks[platform] = url
	}

	return out, nil
}

// spanFor prefers the current catalog and falls back to the period frozen on the record.
func (s *rentalService) spanFor(rental *models.RentalRequest) time.Duration {
	if option, ok := s.catalog.LookupDuration(rental.Duration); ok {
		return option.Span()
	}
	day := 24 * time.Hour
	switch rental.DurationType {
	case "day":
		return time.Duration(rental.DurationValue) * day
	case "week":
		return time.Duration(rental.DurationValue) * 7 * day
	case "month":
		return time.Duration(rental.DurationValue) * 30 * day
	}
	return 0
}

func (s *rentalService) Decide(ctx context.Context, id uuid.UUID, approved bool) (*models.RentalRequest, error) {
	rental, err := s.rentalRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	transition, err := lifecycle.Decide(rental, approved, now, s.spanFor(rental))
	if err != nil {
		return nil, err
	}

	updated, err := s.rentalRepo.Transition(ctx, id, transition)
	if err != nil {
		if errors.Is(err, common.ErrStaleState) {
			return nil, fmt.Errorf("%w: request %s was decided concurrently", common.ErrInvalidTransition, id)
		}
		return nil, err
	}

	s.logger.Info("Rental request decided",
		zap.String("id", id.String()),
		zap.String("slug", updated.Slug),
		zap.String("status", string(updated.Status)),
		zap.Timep("expires_at", updated.ExpirationDate))

	if s.cacheSvc != nil {
		if err := s.cacheSvc.DeleteRentalBySlug(ctx, updated.Slug); err != nil {
			s.logger.Warn("Failed to invalidate resolve cache", zap.String("slug", updated.Slug), zap.Error(err))
		}
	}
	s.archive(ctx, updated)

	return lifecycle.Present(updated, now), nil
}

func (s *rentalService) Resolve(ctx context.Context, slug string) (*models.PublicRentalView, error) {
	now := s.now()

	if cached := s.cachedRental(ctx, slug); cached != nil {
		if !lifecycle.IsLive(cached, now) {
			return nil, fmt.Errorf("rental slug %q: %w", slug, common.ErrExpired)
		}
		return publicView(cached, now), nil
	}

	rental, err := s.rentalRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !lifecycle.IsLive(rental, now) {
		return nil, fmt.Errorf("rental slug %q is %s: %w", slug, lifecycle.EffectiveStatus(rental, now), common.ErrExpired)
	}

	if s.cacheSvc != nil {
		ttl := rental.ExpirationDate.Sub(now)
		if s.cacheTTL < ttl {
			ttl = s.cacheTTL
		}
		if err := s.cacheSvc.SetRentalBySlug(ctx, rental, ttl); err != nil {
			s.logger.Warn("Failed to cache rental", zap.String("slug", slug), zap.Error(err))
		}
	}

	return publicView(rental, now), nil
}

func (s *rentalService) cachedRental(ctx context.Context, slug string) *models.RentalRequest {
	if s.cacheSvc == nil {
		return nil
	}
	rental, err := s.cacheSvc.GetRentalBySlug(ctx, slug)
	if err != nil {
		s.logger.Warn("Resolve cache lookup failed", zap.String("slug", slug), zap.Error(err))
		return nil
	}
	return rental
}

func publicView(rental *models.RentalRequest, now time.Time) *models.PublicRentalView {
	view := &models.PublicRentalView{
		Slug:           rental.Slug,
		BusinessName:   rental.BusinessName,
		BusinessData:   rental.BusinessData,
		ExpirationDate: *rental.ExpirationDate,
		TimeLeft:       lifecycle.Remaining(*rental.ExpirationDate, now),
	}
	if rental.ActivationDate != nil {
		view.ActivationDate = *rental.ActivationDate
	}
	return view
}

func (s *rentalService) GetRequest(ctx context.Context, id uuid.UUID) (*models.RentalRequest, error) {
	rental, err := s.rentalRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return lifecycle.Present(rental, s.now()), nil
}

// ListRequests filters on the effective status, so lapsed rentals only ever show up as expired.
func (s *rentalService) ListRequests(ctx context.Context, filter *models.RentalStatus) ([]*models.RentalRequest, error) {
	var stored []models.RentalStatus
	if filter != nil {
		switch *filter {
		case models.StatusExpired:
			stored = []models.RentalStatus{models.StatusActive, models.StatusExpired}
		default:
			stored = []models.RentalStatus{*filter}
		}
	}

	rentals, err := s.rentalRepo.ListByStatus(ctx, stored)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]*models.RentalRequest, 0, len(rentals))
	for _, r := range rentals {
		presented := lifecycle.Present(r, now)
		if filter != nil && presented.Status != *filter {
			continue
		}
		out = append(out, presented)
	}
	return out, nil
}

func (s *rentalService) ListActiveRentals(ctx context.Context) ([]*models.RentalRequest, error) {
	active := models.StatusActive
	return s.ListRequests(ctx, &active)
}

func (s *rentalService) Stats(ctx context.Context) (map[models.RentalStatus]int64, error) {
	return s.rentalRepo.CountByEffectiveStatus(ctx, s.now())
}

func (s *rentalService) archive(ctx context.Context, rental *models.RentalRequest) {
	if s.archiveSvc == nil {
		return
	}
	if err := s.archiveSvc.ArchiveSnapshot(ctx, rental, s.clock.Now()); err != nil {
		s.logger.Warn("Failed to archive rental snapshot", zap.String("id", rental.ID.String()), zap.Error(err))
	}
}

package generations

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/omarvides/restyle-backend/internal/entitlements"
	"github.com/omarvides/restyle-backend/pkg/db/models"
	"github.com/omarvides/restyle-backend/pkg/enums"
	pkgerrors "github.com/omarvides/restyle-backend/pkg/errors"
	"github.com/omarvides/restyle-backend/pkg/logger"
	"github.com/omarvides/restyle-backend/pkg/metrics"
	"github.com/omarvides/restyle-backend/pkg/pagination"
	"github.com/omarvides/restyle-backend/pkg/replicate"
)

const DefaultMaxVariations = 4

type entitlementChecker interface {
	Check(ctx context.Context, userID uuid.UUID) (entitlements.Decision, error)
}

type creditDecrementer interface {
	DecrementCredits(ctx context.Context, id uuid.UUID) error
}

type modelClient interface {
	Run(ctx context.Context, input replicate.Input) (*replicate.Output, error)
}

type objectStore interface {
	Upload(ctx context.Context, key, contentType string, data []byte) error
	PublicURL(key string) string
	Remove(ctx context.Context, key string) error
}

type imageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// Service implements the generation pipeline: entitlement gate, model
// dispatch, artifact persistence, history row, credit decrement.
type Service struct {
	repo          Repository
	profiles      creditDecrementer
	entitlements  entitlementChecker
	model         modelClient
	store         objectStore
	fetcher       imageFetcher
	metrics       *metrics.GenerationMetrics
	logg          *logger.Logger
	maxVariations int
}

// ServiceParams collects the generation service dependencies.
type ServiceParams struct {
	Repo          Repository
	Profiles      creditDecrementer
	Entitlements  entitlementChecker
	Model         modelClient
	Store         objectStore
	Fetcher       imageFetcher
	Metrics       *metrics.GenerationMetrics
	Logger        *logger.Logger
	MaxVariations int
}

// NewService constructs the generation service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "generation repository required")
	}
	if params.Profiles == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "profile repository required")
	}
	if params.Entitlements == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "entitlement checker required")
	}
	if params.Model == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "model client required")
	}
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "object store required")
	}
	if params.Fetcher == nil {
		params.Fetcher = NewHTTPFetcher(0)
	}
	maxVariations := params.MaxVariations
	if maxVariations <= 0 {
		maxVariations = DefaultMaxVariations
	}
	return &Service{
		repo:          params.Repo,
		profiles:      params.Profiles,
		entitlements:  params.Entitlements,
		model:         params.Model,
		store:         params.Store,
		fetcher:       params.Fetcher,
		metrics:       params.Metrics,
		logg:          params.Logger,
		maxVariations: maxVariations,
	}, nil
}

// GenerateInput models a base generation request.
type GenerateInput struct {
	Image       string
	Prompt      string
	Style       string
	RoomType    string
	Seed        *int64
	AspectRatio string
}

// EditInput models a purpose-scoped edit request.
type EditInput struct {
	Purpose     enums.GenerationPurpose
	Image       string
	Prompt      string
	Seed        *int64
	AspectRatio string
}

// Result is the caller-facing outcome of a generation.
type Result struct {
	ID        *uuid.UUID `json:"id,omitempty"`
	ImageURL  string     `json:"image_url"`
	Prompt    string     `json:"prompt"`
	CreatedAt time.Time  `json:"created_at"`
}

// Generate runs the base pipeline. The base flow always owns its artifact:
// URL results are fetched and re-uploaded so the public URL never points at
// the model provider.
func (s *Service) Generate(ctx context.Context, userID uuid.UUID, input GenerateInput) (*Result, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	image := strings.TrimSpace(input.Image)
	if image == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image is required")
	}
	prompt := buildPrompt(input.Prompt, input.Style, input.RoomType)
	if prompt == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prompt or style is required")
	}

	decision, err := s.entitlements.Check(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, decision.Err()
	}

	output, err := s.dispatch(ctx, enums.GenerationPurposeRedesign, replicate.Input{
		Images:      []string{image},
		Prompt:      prompt,
		Seed:        input.Seed,
		AspectRatio: input.AspectRatio,
	})
	if err != nil {
		return nil, err
	}

	var imageURL string
	var storageKey *string
	switch output.Kind {
	case replicate.OutputKindStream:
		key := buildStorageKey(userID, "")
		if err := s.store.Upload(ctx, key, "image/png", output.Data); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store generated image")
		}
		imageURL = s.store.PublicURL(key)
		storageKey = &key
	case replicate.OutputKindURL:
		data, contentType, err := s.fetcher.Fetch(ctx, output.URL)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch generated image")
		}
		key := buildStorageKey(userID, "")
		if err := s.store.Upload(ctx, key, contentType, data); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store generated image")
		}
		imageURL = s.store.PublicURL(key)
		storageKey = &key
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, replicate.ErrUnknownOutputFormat, "resolve model output")
	}

	row := &models.Generation{
		ID:         uuid.New(),
		UserID:     userID,
		ImageURL:   imageURL,
		Prompt:     prompt,
		Purpose:    enums.GenerationPurposeRedesign,
		Seed:       input.Seed,
		StorageKey: storageKey,
	}
	if style := strings.TrimSpace(input.Style); style != "" {
		row.Style = &style
	}
	if roomType := strings.TrimSpace(input.RoomType); roomType != "" {
		row.RoomType = &roomType
	}

	recorded := s.record(ctx, row)
	s.settle(ctx, userID, decision)

	result := &Result{ImageURL: imageURL, Prompt: prompt, CreatedAt: time.Now().UTC()}
	if recorded {
		result.ID = &row.ID
		result.CreatedAt = row.CreatedAt
	}
	return result, nil
}

// Edit runs a purpose-scoped pipeline (furniture removal, magic edit, color
// change). URL results are used as-is; only streams are uploaded.
func (s *Service) Edit(ctx context.Context, userID uuid.UUID, input EditInput) (*Result, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Purpose.IsValid() || input.Purpose == enums.GenerationPurposeRedesign {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid edit purpose")
	}
	image := strings.TrimSpace(input.Image)
	if image == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image is required")
	}
	prompt := strings.TrimSpace(input.Prompt)
	if prompt == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prompt is required")
	}

	decision, err := s.entitlements.Check(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, decision.Err()
	}

	output, err := s.dispatch(ctx, input.Purpose, replicate.Input{
		Images:      []string{image},
		Prompt:      prompt,
		Seed:        input.Seed,
		AspectRatio: input.AspectRatio,
	})
	if err != nil {
		return nil, err
	}

	var imageURL string
	var storageKey *string
	switch output.Kind {
	case replicate.OutputKindStream:
		key := buildStorageKey(userID, input.Purpose.String())
		if err := s.store.Upload(ctx, key, "image/png", output.Data); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store edited image")
		}
		imageURL = s.store.PublicURL(key)
		storageKey = &key
	case replicate.OutputKindURL:
		imageURL = output.URL
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, replicate.ErrUnknownOutputFormat, "resolve model output")
	}

	row := &models.Generation{
		ID:         uuid.New(),
		UserID:     userID,
		ImageURL:   imageURL,
		Prompt:     prompt,
		Purpose:    input.Purpose,
		Seed:       input.Seed,
		StorageKey: storageKey,
	}

	recorded := s.record(ctx, row)
	s.settle(ctx, userID, decision)

	result := &Result{ImageURL: imageURL, Prompt: prompt, CreatedAt: time.Now().UTC()}
	if recorded {
		result.ID = &row.ID
		result.CreatedAt = row.CreatedAt
	}
	return result, nil
}

// Variations fans out up to maxVariations independent dispatches against a
// parent generation. A failed slot is dropped from the result; it does not
// abort the others.
func (s *Service) Variations(ctx context.Context, userID, parentID uuid.UUID, count int) ([]Result, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if count <= 0 {
		count = 1
	}
	if count > s.maxVariations {
		count = s.maxVariations
	}

	parent, err := s.repo.FindByID(ctx, parentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load parent generation")
	}
	if parent == nil || parent.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "generation not found")
	}

	decision, err := s.entitlements.Check(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, decision.Err()
	}

	slots := make([]*Result, count)
	var wg sync.WaitGroup
	for i := 0; i < count; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			result, err := s.runVariation(ctx, userID, parent)
			if err != nil {
				if s.logg != nil {
					s.logg.Warn(ctx, fmt.Sprintf("variation slot %d dropped: %v", slot, err))
				}
				return
			}
			slots[slot] = result
		}(i)
	}
	wg.Wait()

	results := make([]Result, 0, count)
	for _, slot := range slots {
		if slot == nil {
			continue
		}
		results = append(results, *slot)
		s.settle(ctx, userID, decision)
	}
	return results, nil
}

func (s *Service) runVariation(ctx context.Context, userID uuid.UUID, parent *models.Generation) (*Result, error) {
	output, err := s.dispatch(ctx, parent.Purpose, replicate.Input{
		Images: []string{parent.ImageURL},
		Prompt: parent.Prompt,
	})
	if err != nil {
		return nil, err
	}

	var imageURL string
	var storageKey *string
	switch output.Kind {
	case replicate.OutputKindStream:
		key := buildStorageKey(userID, "variations")
		if err := s.store.Upload(ctx, key, "image/png", output.Data); err != nil {
			return nil, err
		}
		imageURL = s.store.PublicURL(key)
		storageKey = &key
	case replicate.OutputKindURL:
		imageURL = output.URL
	default:
		return nil, replicate.ErrUnknownOutputFormat
	}

	row := &models.Generation{
		ID:         uuid.New(),
		UserID:     userID,
		ImageURL:   imageURL,
		Prompt:     parent.Prompt,
		Style:      parent.Style,
		RoomType:   parent.RoomType,
		Purpose:    parent.Purpose,
		ParentID:   &parent.ID,
		StorageKey: storageKey,
	}

	recorded := s.record(ctx, row)
	result := &Result{ImageURL: imageURL, Prompt: parent.Prompt, CreatedAt: time.Now().UTC()}
	if recorded {
		result.ID = &row.ID
		result.CreatedAt = row.CreatedAt
	}
	return result, nil
}

// ListParams configures history listing.
type ListParams struct {
	Limit  int
	Cursor string
}

// ListResult returns paginated generation history.
type ListResult struct {
	Items  []Item `json:"generations"`
	Cursor string `json:"next_cursor,omitempty"`
}

// Item is one history entry.
type Item struct {
	ID        uuid.UUID               `json:"id"`
	ImageURL  string                  `json:"image_url"`
	Prompt    string                  `json:"prompt"`
	Style     *string                 `json:"style,omitempty"`
	RoomType  *string                 `json:"room_type,omitempty"`
	Purpose   enums.GenerationPurpose `json:"purpose"`
	ParentID  *uuid.UUID              `json:"parent_id,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
}

// List returns the caller's generation history, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, params ListParams) (*ListResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	query := ListQuery{UserID: userID, Limit: params.Limit}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListByUser(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list generations")
	}

	items := make([]Item, len(rows))
	for i, row := range rows {
		items[i] = Item{
			ID:        row.ID,
			ImageURL:  row.ImageURL,
			Prompt:    row.Prompt,
			Style:     row.Style,
			RoomType:  row.RoomType,
			Purpose:   row.Purpose,
			ParentID:  row.ParentID,
			CreatedAt: row.CreatedAt,
		}
	}

	result := &ListResult{Items: items}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

// Delete removes a generation. The stored object goes first so a failed
// removal never leaves a row pointing at a live artifact orphaned from
// history.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load generation")
	}
	if row == nil || row.UserID != userID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "generation not found")
	}

	if row.StorageKey != nil && *row.StorageKey != "" {
		if err := s.store.Remove(ctx, *row.StorageKey); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove stored object")
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete generation")
	}
	return nil
}

func (s *Service) dispatch(ctx context.Context, purpose enums.GenerationPurpose, input replicate.Input) (*replicate.Output, error) {
	started := time.Now()
	output, err := s.model.Run(ctx, input)
	s.metrics.ObserveDuration(purpose.String(), time.Since(started))
	if err != nil {
		s.metrics.IncFailure(purpose.String())
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "run model")
	}
	s.metrics.IncSuccess(purpose.String())
	s.metrics.IncOutputFormat(string(output.Kind))
	return output, nil
}

// record inserts the history row. Insert failures are logged and swallowed:
// the artifact is already stored and the caller still gets their image.
func (s *Service) record(ctx context.Context, row *models.Generation) bool {
	if err := s.repo.Create(ctx, row); err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "generation insert failed, returning result anyway", err)
		}
		return false
	}
	return true
}

// settle charges one credit for non-subscribers. Best effort; not
// transactional with the insert.
func (s *Service) settle(ctx context.Context, userID uuid.UUID, decision entitlements.Decision) {
	if decision.Subscriber {
		return
	}
	if err := s.profiles.DecrementCredits(ctx, userID); err != nil && s.logg != nil {
		s.logg.Error(ctx, "credit decrement failed", err)
	}
}

func buildPrompt(prompt, style, roomType string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt != "" {
		return prompt
	}
	style = strings.TrimSpace(style)
	if style == "" {
		return ""
	}
	roomType = strings.TrimSpace(roomType)
	if roomType == "" {
		return fmt.Sprintf("Redesign this room in %s style", style)
	}
	return fmt.Sprintf("Redesign this %s in %s style", strings.ReplaceAll(roomType, "_", " "), style)
}

func buildStorageKey(userID uuid.UUID, namespace string) string {
	suffix := strings.Split(uuid.NewString(), "-")[0]
	name := fmt.Sprintf("%s/%d-%s.png", userID, time.Now().UnixMilli(), suffix)
	if namespace == "" {
		return name
	}
	return fmt.Sprintf("%s/%s", namespace, name)
}

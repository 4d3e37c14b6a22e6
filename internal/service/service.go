// Package service orchestrates relocations: it loads presets from a store,
// runs the relocation engine, persists the results and notifies the user.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"

	"github.com/dpshade/prompt-mover/internal/errors"
	"github.com/dpshade/prompt-mover/internal/models"
	"github.com/dpshade/prompt-mover/internal/notify"
	"github.com/dpshade/prompt-mover/internal/relocate"
)

// FailureMessage is the single notification shown for any failed operation
const FailureMessage = "Operation failed"

// Store loads and persists presets
type Store interface {
	List(ctx context.Context) ([]models.Summary, error)
	Get(ctx context.Context, name string) (*models.Preset, error)
	Persist(ctx context.Context, name string, preset *models.Preset) error
}

// Operation is one relocation request addressed by preset name
type Operation struct {
	SourceName string
	TargetName string
	Identifier string
	Position   relocate.Position
	Mode       relocate.Mode
	// Scope is the order scope being edited; empty means the service default
	Scope string
}

// Outcome describes a relocation that was persisted
type Outcome struct {
	Mode    relocate.Mode
	Source  string
	Target  string
	Scope   string
	Item    *models.Prompt
	Renamed bool
}

// Message is the success notification for the outcome
func (o *Outcome) Message() string {
	verb := "Copied"
	if o.Mode == relocate.ModeMove {
		verb = "Moved"
	}
	msg := fmt.Sprintf("%s '%s' to %s", verb, o.Item.Name, o.Target)
	if o.Renamed {
		msg += fmt.Sprintf(" as %s", o.Item.Identifier)
	}
	return msg
}

// Service provides relocation and preset browsing on top of a Store
type Service struct {
	store        Store
	notifier     notify.Notifier
	logger       *zap.Logger
	defaultScope string
	mu           sync.Mutex // one operation at a time, so a preset is never persisted concurrently
}

// Option configures a Service
type Option func(*Service)

// WithNotifier sets where outcome notifications are delivered
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithDefaultScope sets the scope used when an operation names none
func WithDefaultScope(scope string) Option {
	return func(s *Service) {
		if scope != "" {
			s.defaultScope = scope
		}
	}
}

// NewService creates a new service instance
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:        store,
		defaultScope: models.GlobalScope,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.notifier == nil {
		s.notifier = notify.NewLogger(s.logger)
	}
	return s
}

// DefaultScope returns the scope used when none is given
func (s *Service) DefaultScope() string {
	return s.defaultScope
}

func (s *Service) scope(scope string) string {
	if scope == "" {
		return s.defaultScope
	}
	return scope
}

// load fetches a preset and pins its name to the one it was requested by
func (s *Service) load(ctx context.Context, name string) (*models.Preset, error) {
	preset, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	preset.Name = name
	return preset, nil
}

// Relocate copies or moves a prompt between presets and persists the result.
// The target is persisted first; on a move the source follows. If the source
// cannot be persisted the prompt is left in both presets and a PARTIAL_PERSIST
// error is returned. Nothing is retried.
func (s *Service) Relocate(ctx context.Context, op Operation) (*Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	outcome, err := s.relocate(ctx, op)
	if err != nil {
		s.fail(err, zap.String("op", string(op.Mode)),
			zap.String("source", op.SourceName),
			zap.String("target", op.TargetName),
			zap.String("identifier", op.Identifier))
		return nil, err
	}

	s.logger.Info("relocated prompt",
		zap.String("op", string(outcome.Mode)),
		zap.String("source", outcome.Source),
		zap.String("target", outcome.Target),
		zap.String("identifier", outcome.Item.Identifier),
		zap.Bool("renamed", outcome.Renamed))
	s.notifier.Notify(notify.Success, outcome.Message())
	return outcome, nil
}

func (s *Service) relocate(ctx context.Context, op Operation) (*Outcome, error) {
	source, err := s.load(ctx, op.SourceName)
	if err != nil {
		return nil, err
	}
	target := source
	if op.TargetName != op.SourceName {
		if target, err = s.load(ctx, op.TargetName); err != nil {
			return nil, err
		}
	}

	scope := s.scope(op.Scope)
	result, err := relocate.Relocate(relocate.Request{
		Source:     source,
		Target:     target,
		Identifier: op.Identifier,
		Position:   op.Position,
		Mode:       op.Mode,
		Scope:      scope,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("persisting target", zap.String("preset", op.TargetName))
	if err := s.store.Persist(ctx, op.TargetName, result.Target); err != nil {
		return nil, errors.PersistError(op.TargetName, err)
	}

	if op.Mode == relocate.ModeMove && !result.SameCollection() {
		s.logger.Debug("persisting source", zap.String("preset", op.SourceName))
		if err := s.store.Persist(ctx, op.SourceName, result.Source); err != nil {
			return nil, errors.PartialPersistError(op.SourceName, op.TargetName, op.Identifier, err)
		}
	}

	return &Outcome{
		Mode:    op.Mode,
		Source:  op.SourceName,
		Target:  op.TargetName,
		Scope:   scope,
		Item:    result.Item,
		Renamed: result.Renamed,
	}, nil
}

// fail logs the error and sends the generic failure notification
func (s *Service) fail(err error, fields ...zap.Field) {
	appErr := errors.GetAppError(err)
	fields = append(fields, zap.String("code", string(appErr.Code)), zap.Error(err))
	if appErr.IsValidation() {
		s.logger.Warn("operation rejected", fields...)
	} else {
		s.logger.Error("operation failed", fields...)
	}
	s.notifier.Notify(notify.SeverityFor(err), FailureMessage)
}

// Reorder repositions a prompt within one scope of a preset and persists it
func (s *Service) Reorder(ctx context.Context, presetName, identifier string, pos relocate.Position, scope string) (*models.Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated, err := s.edit(ctx, presetName, func(p *models.Preset) (*models.Preset, error) {
		return relocate.Reorder(p, identifier, pos, s.scope(scope))
	})
	if err != nil {
		s.fail(err, zap.String("op", "reorder"), zap.String("preset", presetName), zap.String("identifier", identifier))
		return nil, err
	}
	s.notifier.Notify(notify.Success, fmt.Sprintf("Reordered '%s' (%s) in %s", identifier, pos, presetName))
	return updated, nil
}

// Remove deletes a prompt and its references from a preset and persists it
func (s *Service) Remove(ctx context.Context, presetName, identifier string) (*models.Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated, err := s.edit(ctx, presetName, func(p *models.Preset) (*models.Preset, error) {
		return relocate.Remove(p, identifier)
	})
	if err != nil {
		s.fail(err, zap.String("op", "remove"), zap.String("preset", presetName), zap.String("identifier", identifier))
		return nil, err
	}
	s.notifier.Notify(notify.Success, fmt.Sprintf("Removed '%s' from %s", identifier, presetName))
	return updated, nil
}

func (s *Service) edit(ctx context.Context, name string, fn func(*models.Preset) (*models.Preset, error)) (*models.Preset, error) {
	preset, err := s.load(ctx, name)
	if err != nil {
		return nil, err
	}
	updated, err := fn(preset)
	if err != nil {
		return nil, err
	}
	if err := s.store.Persist(ctx, name, updated); err != nil {
		return nil, errors.PersistError(name, err)
	}
	return updated, nil
}

// ListPresets returns the summaries of every preset in the store
func (s *Service) ListPresets(ctx context.Context) ([]models.Summary, error) {
	return s.store.List(ctx)
}

// GetPreset loads a preset by name
func (s *Service) GetPreset(ctx context.Context, name string) (*models.Preset, error) {
	return s.load(ctx, name)
}

// ResolveOrder loads a preset and returns the ordered view of one scope
func (s *Service) ResolveOrder(ctx context.Context, name, scope string) ([]relocate.ResolvedRef, error) {
	preset, err := s.load(ctx, name)
	if err != nil {
		return nil, err
	}
	return relocate.ResolveOrder(preset, s.scope(scope)), nil
}

// SearchItems fuzzy-matches a query against the names and identifiers of a
// preset's prompts. An empty query returns every prompt.
func (s *Service) SearchItems(ctx context.Context, name, query string) ([]*models.Prompt, error) {
	preset, err := s.load(ctx, name)
	if err != nil {
		return nil, err
	}
	return FilterItems(preset.Items, query), nil
}

// FilterItems returns the prompts matching query, best match first
func FilterItems(items []*models.Prompt, query string) []*models.Prompt {
	if strings.TrimSpace(query) == "" {
		return append([]*models.Prompt{}, items...)
	}

	// Create searchable strings for each prompt
	searchStrings := make([]string, len(items))
	for i, p := range items {
		searchStrings[i] = p.FilterValue()
	}

	matches := fuzzy.Find(query, searchStrings)
	results := make([]*models.Prompt, 0, len(matches))
	for _, match := range matches {
		results = append(results, items[match.Index])
	}
	return results
}

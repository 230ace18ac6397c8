// Package templates manages the reusable WhatsApp message bodies employees
// send to leads. Placeholders are rendered by the messaging service.
package templates

import (
	"context"
	"strings"

	"salescrm_backend/internal/crm/domain"
	"salescrm_backend/internal/crm/repository"
	"salescrm_backend/platform/apperr"

	"github.com/google/uuid"
)

const (
	maxNameLength        = 50
	maxDescriptionLength = 200
	maxContentLength     = 4096
)

type CreateParams struct {
	Name        string
	Description *string
	Content     string
	Category    string
	Tags        []string
	IsActive    *bool
}

type UpdateParams struct {
	Name        *string
	Description *string
	Content     *string
	Category    *string
	Tags        []string
	IsActive    *bool
}

type Service struct {
	store repository.TemplateStore
}

func New(store repository.TemplateStore) *Service {
	return &Service{store: store}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.WhatsAppTemplate, error) {
	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return domain.WhatsAppTemplate{}, repository.Translate("templates.Get", "template", err)
	}
	return t, nil
}

// List returns the templates. Employees only see active ones.
func (s *Service) List(ctx context.Context, actor domain.Actor) ([]domain.WhatsAppTemplate, error) {
	items, err := s.store.ListTemplates(ctx, !actor.Admin)
	if err != nil {
		return nil, apperr.Storage(err).WithOp("templates.List")
	}
	return items, nil
}

func (s *Service) Create(ctx context.Context, actor domain.Actor, params CreateParams) (domain.WhatsAppTemplate, error) {
	const op = "templates.Create"

	if !actor.Admin {
		return domain.WhatsAppTemplate{}, apperr.Forbidden("only admins manage templates").WithOp(op)
	}
	name, err := validName(params.Name)
	if err != nil {
		return domain.WhatsAppTemplate{}, err.WithOp(op)
	}
	content, err := validContent(params.Content)
	if err != nil {
		return domain.WhatsAppTemplate{}, err.WithOp(op)
	}
	category, ok := domain.ParseTemplateCategory(params.Category)
	if !ok {
		return domain.WhatsAppTemplate{}, apperr.Validation("unknown template category").WithOp(op)
	}
	if err := validDescription(params.Description); err != nil {
		return domain.WhatsAppTemplate{}, err.WithOp(op)
	}

	active := true
	if params.IsActive != nil {
		active = *params.IsActive
	}
	var createdBy *uuid.UUID
	if !actor.System {
		id := actor.UserID
		createdBy = &id
	}

	created, storeErr := s.store.CreateTemplate(ctx, repository.CreateTemplateParams{
		Name:        name,
		Description: params.Description,
		Content:     content,
		Category:    category,
		Tags:        normalizeTags(params.Tags),
		IsActive:    active,
		CreatedBy:   createdBy,
	})
	if storeErr != nil {
		return domain.WhatsAppTemplate{}, repository.Translate(op, "template", storeErr)
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, params UpdateParams) (domain.WhatsAppTemplate, error) {
	const op = "templates.Update"

	if !actor.Admin {
		return domain.WhatsAppTemplate{}, apperr.Forbidden("only admins manage templates").WithOp(op)
	}

	update := repository.UpdateTemplateParams{
		Description: params.Description,
		IsActive:    params.IsActive,
	}
	if params.Name != nil {
		name, err := validName(*params.Name)
		if err != nil {
			return domain.WhatsAppTemplate{}, err.WithOp(op)
		}
		update.Name = &name
	}
	if params.Content != nil {
		content, err := validContent(*params.Content)
		if err != nil {
			return domain.WhatsAppTemplate{}, err.WithOp(op)
		}
		update.Content = &content
	}
	if params.Category != nil {
		category, ok := domain.ParseTemplateCategory(*params.Category)
		if !ok {
			return domain.WhatsAppTemplate{}, apperr.Validation("unknown template category").WithOp(op)
		}
		update.Category = &category
	}
	if err := validDescription(params.Description); err != nil {
		return domain.WhatsAppTemplate{}, err.WithOp(op)
	}
	if params.Tags != nil {
		update.Tags = normalizeTags(params.Tags)
	}

	updated, err := s.store.UpdateTemplate(ctx, id, update)
	if err != nil {
		return domain.WhatsAppTemplate{}, repository.Translate(op, "template", err)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	const op = "templates.Delete"

	if !actor.Admin {
		return apperr.Forbidden("only admins manage templates").WithOp(op)
	}
	if err := s.store.DeleteTemplate(ctx, id); err != nil {
		return repository.Translate(op, "template", err)
	}
	return nil
}

// MarkUsed counts one send of the template.
func (s *Service) MarkUsed(ctx context.Context, id uuid.UUID) error {
	if err := s.store.IncrementTemplateUsage(ctx, id); err != nil {
		return repository.Translate("templates.MarkUsed", "template", err)
	}
	return nil
}

func validName(name string) (string, *apperr.Error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", apperr.Validation("template name is required")
	case len([]rune(name)) > maxNameLength:
		return "", apperr.Validation("template name is too long")
	}
	return name, nil
}

func validContent(content string) (string, *apperr.Error) {
	content = strings.TrimSpace(content)
	switch {
	case content == "":
		return "", apperr.Validation("template content is required")
	case len([]rune(content)) > maxContentLength:
		return "", apperr.Validation("template content is too long")
	}
	return content, nil
}

func validDescription(description *string) *apperr.Error {
	if description != nil && len([]rune(*description)) > maxDescriptionLength {
		return apperr.Validation("template description is too long")
	}
	return nil
}

// normalizeTags trims, lowercases and deduplicates tags, keeping their order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

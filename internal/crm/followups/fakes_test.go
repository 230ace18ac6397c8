package followups

import (
	"context"
	"sort"
	"sync"
	"time"

	"salescrm_backend/internal/crm/activity"
	"salescrm_backend/internal/crm/domain"
	"salescrm_backend/internal/crm/ports"
	"salescrm_backend/internal/crm/repository"
	"salescrm_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeFollowUps struct {
	mu        sync.Mutex
	items     map[uuid.UUID]domain.FollowUp
	createErr error
	// failCreateAfter makes creates fail once this many have succeeded.
	failCreateAfter int
	creates         int
}

func newFakeFollowUps() *fakeFollowUps {
	return &fakeFollowUps{items: map[uuid.UUID]domain.FollowUp{}, failCreateAfter: -1}
}

func (f *fakeFollowUps) GetFollowUp(_ context.Context, id uuid.UUID) (domain.FollowUp, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return domain.FollowUp{}, repository.ErrNotFound
	}
	return item, nil
}

func (f *fakeFollowUps) ListFollowUpsForLead(_ context.Context, leadID uuid.UUID) ([]domain.FollowUp, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.FollowUp, 0)
	for _, item := range f.items {
		if item.LeadID == leadID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Scheduled.After(out[j].Scheduled) })
	return out, nil
}

func (f *fakeFollowUps) supersede(leadID, replacement uuid.UUID) []uuid.UUID {
	var ids []uuid.UUID
	for id, item := range f.items {
		if item.LeadID == leadID && item.Status == domain.FollowUpPending && id != replacement {
			item.Status = domain.FollowUpRescheduled
			r := replacement
			item.SupersededBy = &r
			item.Version++
			f.items[id] = item
			ids = append(ids, id)
		}
	}
	return ids
}

func (f *fakeFollowUps) CreateFollowUp(_ context.Context, p repository.CreateFollowUpParams) (domain.FollowUp, []uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return domain.FollowUp{}, nil, f.createErr
	}
	if f.failCreateAfter >= 0 && f.creates >= f.failCreateAfter {
		return domain.FollowUp{}, nil, errStoreDown
	}
	f.creates++

	created := domain.FollowUp{
		ID:           uuid.New(),
		LeadID:       p.LeadID,
		AssignedTo:   p.AssignedTo,
		Scheduled:    p.Scheduled,
		Type:         p.Type,
		Status:       domain.FollowUpPending,
		IntervalDays: p.IntervalDays,
		Notes:        p.Notes,
		Version:      1,
	}
	superseded := f.supersede(p.LeadID, created.ID)
	f.items[created.ID] = created
	return created, superseded, nil
}

func (f *fakeFollowUps) casUpdate(id uuid.UUID, version int64, mutate func(*domain.FollowUp)) (domain.FollowUp, error) {
	item, ok := f.items[id]
	if !ok || item.Version != version || item.Status.IsTerminal() {
		return domain.FollowUp{}, repository.ErrStale
	}
	mutate(&item)
	item.Version++
	f.items[id] = item
	return item, nil
}

func (f *fakeFollowUps) CompleteFollowUp(_ context.Context, p repository.CompleteFollowUpParams) (domain.FollowUp, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.casUpdate(p.ID, p.ExpectedVersion, func(item *domain.FollowUp) {
		item.Status = domain.FollowUpCompleted
		if p.Outcome != nil {
			item.Outcome = p.Outcome
		}
		if p.Notes != nil {
			item.Notes = p.Notes
		}
		completedAt := p.CompletedAt
		item.CompletedAt = &completedAt
	})
}

func (f *fakeFollowUps) UpdateFollowUpStatus(_ context.Context, p repository.UpdateFollowUpStatusParams) (domain.FollowUp, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.casUpdate(p.ID, p.ExpectedVersion, func(item *domain.FollowUp) {
		item.Status = p.Status
		if p.Outcome != nil {
			item.Outcome = p.Outcome
		}
	})
}

func (f *fakeFollowUps) ReactivateFollowUp(_ context.Context, p repository.ReactivateFollowUpParams) (domain.FollowUp, []uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[p.ID]
	if !ok || item.Version != p.ExpectedVersion || item.Status.IsTerminal() {
		return domain.FollowUp{}, nil, repository.ErrStale
	}
	superseded := f.supersede(item.LeadID, p.ID)
	updated, err := f.casUpdate(p.ID, p.ExpectedVersion, func(item *domain.FollowUp) {
		item.Status = domain.FollowUpPending
		item.Scheduled = p.Scheduled
		item.Snoozed = p.Snoozed
		if p.SnoozedFrom != nil {
			item.SnoozedFrom = p.SnoozedFrom
		}
		if p.RescheduledFrom != nil {
			item.RescheduledFrom = p.RescheduledFrom
		}
		if p.CountReschedule {
			item.RescheduleCount++
		}
		item.SupersededBy = nil
	})
	return updated, superseded, err
}

func (f *fakeFollowUps) ListFollowUps(_ context.Context, p repository.ListFollowUpsParams) ([]domain.FollowUp, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.FollowUp, 0)
	for _, item := range f.items {
		if item.Status.IsTerminal() || item.SupersededBy != nil {
			continue
		}
		if p.AssigneeID != nil && item.AssignedTo != *p.AssigneeID {
			continue
		}
		if !p.From.IsZero() && item.Scheduled.Before(p.From) {
			continue
		}
		if !item.Scheduled.Before(p.To) {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Scheduled.Before(out[j].Scheduled) })
	return out, nil
}

func (f *fakeFollowUps) ClaimDueReminders(_ context.Context, dueBefore time.Time, _ int) ([]domain.FollowUp, error) {
	return nil, nil
}

func (f *fakeFollowUps) pendingFor(leadID uuid.UUID) []domain.FollowUp {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.FollowUp
	for _, item := range f.items {
		if item.LeadID == leadID && item.Status == domain.FollowUpPending {
			out = append(out, item)
		}
	}
	return out
}

type fakeLeads struct {
	mu        sync.Mutex
	items     map[uuid.UUID]domain.Lead
	updateErr error
}

func (f *fakeLeads) GetLead(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.items[id]
	if !ok {
		return domain.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeLeads) UpdateLeadStatus(_ context.Context, id uuid.UUID, from, to domain.LeadStatus) (domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return domain.Lead{}, f.updateErr
	}
	lead, ok := f.items[id]
	if !ok || lead.Status != from {
		return domain.Lead{}, repository.ErrStale
	}
	lead.Status = to
	f.items[id] = lead
	return lead, nil
}

type fakeUsers map[uuid.UUID]domain.User

func (f fakeUsers) GetUser(_ context.Context, id uuid.UUID) (domain.User, error) {
	user, ok := f[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return user, nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []activity.RecordParams
	err     error
}

func (f *fakeRecorder) Record(_ context.Context, p activity.RecordParams) (domain.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.Activity{}, f.err
	}
	f.records = append(f.records, p)
	notes := p.Notes
	return domain.Activity{ID: uuid.New(), LeadID: p.LeadID, Type: p.Type, Status: p.Status, Notes: &notes}, nil
}

type fakeSettings struct {
	settings domain.Settings
}

func (f *fakeSettings) Get(context.Context) domain.Settings { return f.settings }

func (f *fakeSettings) IntervalDays(_ context.Context, status domain.LeadStatus) (int, error) {
	days, err := f.settings.IntervalDays(status)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindConfiguration, err.Error(), err)
	}
	return days, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []ports.Notification
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, n ports.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return f.err
}

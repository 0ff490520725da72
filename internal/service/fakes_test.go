package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"cobranza-bot/internal/domain"
)

type memDebtorRepo struct {
	mu      sync.Mutex
	nextID  int64
	debtors map[int64]domain.Debtor
	listed  []domain.DebtorFilter
}

func newMemDebtorRepo(seed ...domain.Debtor) *memDebtorRepo {
	r := &memDebtorRepo{debtors: map[int64]domain.Debtor{}}
	for _, d := range seed {
		if d.ID > r.nextID {
			r.nextID = d.ID
		}
		r.debtors[d.ID] = d
	}
	return r
}

func (r *memDebtorRepo) List(_ context.Context, userID int64, filter domain.DebtorFilter) ([]domain.Debtor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listed = append(r.listed, filter)
	out := []domain.Debtor{}
	for _, d := range r.debtors {
		if d.UserID == userID && (filter.State == "" || d.State == filter.State) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memDebtorRepo) GetByID(_ context.Context, userID, id int64) (domain.Debtor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.debtors[id]
	if !ok || d.UserID != userID {
		return domain.Debtor{}, pgx.ErrNoRows
	}
	return d, nil
}

func (r *memDebtorRepo) Create(_ context.Context, d domain.Debtor) (domain.Debtor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	d.ID = r.nextID
	d.StateUpdatedAt = time.Now()
	r.debtors[d.ID] = d
	return d, nil
}

func (r *memDebtorRepo) Update(_ context.Context, d domain.Debtor) (domain.Debtor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.debtors[d.ID]
	if !ok || old.UserID != d.UserID {
		return domain.Debtor{}, pgx.ErrNoRows
	}
	if old.State != d.State {
		d.StateUpdatedAt = time.Now()
	}
	r.debtors[d.ID] = d
	return d, nil
}

func (r *memDebtorRepo) Delete(_ context.Context, userID, id int64) (domain.Debtor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.debtors[id]
	if !ok || d.UserID != userID {
		return domain.Debtor{}, pgx.ErrNoRows
	}
	delete(r.debtors, id)
	return d, nil
}

func (r *memDebtorRepo) ExistsDNI(_ context.Context, userID int64, dni string, excludeID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.debtors {
		if d.UserID == userID && d.DNI == dni && d.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memDebtorRepo) ListByDataset(_ context.Context, userID, datasetID int64) ([]domain.Debtor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Debtor{}
	for _, d := range r.debtors {
		if d.UserID == userID && d.DebtorDatasetID == datasetID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memDebtorRepo) FindLatestByPhone(_ context.Context, phones []string) (domain.Debtor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var (
		best  domain.Debtor
		found bool
	)
	for _, d := range r.debtors {
		for _, p := range phones {
			if d.Phone == p && (!found || d.UpdatedAt.After(best.UpdatedAt)) {
				best, found = d, true
			}
		}
	}
	if !found {
		return domain.Debtor{}, pgx.ErrNoRows
	}
	return best, nil
}

type memDatasetRepo struct {
	mu        sync.Mutex
	nextID    int64
	datasets  map[int64]domain.DebtorDataset
	imported  []domain.Debtor
	fields    []domain.CustomField
	importErr error
}

func newMemDatasetRepo(seed ...domain.DebtorDataset) *memDatasetRepo {
	r := &memDatasetRepo{datasets: map[int64]domain.DebtorDataset{}}
	for _, ds := range seed {
		if ds.ID > r.nextID {
			r.nextID = ds.ID
		}
		r.datasets[ds.ID] = ds
	}
	return r
}

func (r *memDatasetRepo) Create(_ context.Context, ds domain.DebtorDataset) (domain.DebtorDataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	ds.ID = r.nextID
	r.datasets[ds.ID] = ds
	return ds, nil
}

func (r *memDatasetRepo) List(_ context.Context, userID int64, skip, limit int) ([]domain.DebtorDataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.DebtorDataset{}
	for _, ds := range r.datasets {
		if ds.UserID == userID {
			out = append(out, ds)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if skip >= len(out) {
		return []domain.DebtorDataset{}, nil
	}
	out = out[skip:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memDatasetRepo) GetByID(_ context.Context, userID, id int64) (domain.DebtorDataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ds, ok := r.datasets[id]
	if !ok || ds.UserID != userID {
		return domain.DebtorDataset{}, pgx.ErrNoRows
	}
	return ds, nil
}

func (r *memDatasetRepo) Rename(ctx context.Context, userID, id int64, name string) (domain.DebtorDataset, error) {
	ds, err := r.GetByID(ctx, userID, id)
	if err != nil {
		return ds, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ds.Name = name
	r.datasets[id] = ds
	return ds, nil
}

func (r *memDatasetRepo) Delete(ctx context.Context, userID, id int64) (domain.DebtorDataset, error) {
	ds, err := r.GetByID(ctx, userID, id)
	if err != nil {
		return ds, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.datasets, id)
	return ds, nil
}

func (r *memDatasetRepo) Import(ctx context.Context, ds domain.DebtorDataset, fields []domain.CustomField, debtors []domain.Debtor) (domain.DebtorDataset, int, error) {
	if r.importErr != nil {
		return domain.DebtorDataset{}, 0, r.importErr
	}
	created, _ := r.Create(ctx, ds)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields = append(r.fields, fields...)
	r.imported = append(r.imported, debtors...)
	return created, len(debtors), nil
}

type memFieldRepo struct {
	nextID int64
	fields map[int64]domain.CustomField
	owner  map[int64]int64 // dataset -> user
}

func newMemFieldRepo(owner map[int64]int64) *memFieldRepo {
	return &memFieldRepo{fields: map[int64]domain.CustomField{}, owner: owner}
}

func (r *memFieldRepo) Create(_ context.Context, f domain.CustomField) (domain.CustomField, error) {
	r.nextID++
	f.ID = r.nextID
	r.fields[f.ID] = f
	return f, nil
}

func (r *memFieldRepo) ListByDataset(_ context.Context, datasetID int64) ([]domain.CustomField, error) {
	out := []domain.CustomField{}
	for _, f := range r.fields {
		if f.DebtorDatasetID == datasetID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memFieldRepo) GetByID(_ context.Context, userID, datasetID, id int64) (domain.CustomField, error) {
	f, ok := r.fields[id]
	if !ok || f.DebtorDatasetID != datasetID || r.owner[datasetID] != userID {
		return domain.CustomField{}, pgx.ErrNoRows
	}
	return f, nil
}

func (r *memFieldRepo) Update(ctx context.Context, userID int64, f domain.CustomField) (domain.CustomField, error) {
	if _, err := r.GetByID(ctx, userID, f.DebtorDatasetID, f.ID); err != nil {
		return domain.CustomField{}, err
	}
	r.fields[f.ID] = f
	return f, nil
}

func (r *memFieldRepo) Delete(ctx context.Context, userID, datasetID, id int64) (domain.CustomField, error) {
	f, err := r.GetByID(ctx, userID, datasetID, id)
	if err != nil {
		return f, err
	}
	delete(r.fields, id)
	return f, nil
}

type memStrategyRepo struct {
	nextID     int64
	strategies map[int64]domain.Strategy
	getErr     error
}

func newMemStrategyRepo(seed ...domain.Strategy) *memStrategyRepo {
	r := &memStrategyRepo{strategies: map[int64]domain.Strategy{}}
	for _, s := range seed {
		if s.ID > r.nextID {
			r.nextID = s.ID
		}
		r.strategies[s.ID] = s
	}
	return r
}

func (r *memStrategyRepo) Create(_ context.Context, s domain.Strategy) (domain.Strategy, error) {
	r.nextID++
	s.ID = r.nextID
	r.strategies[s.ID] = s
	return s, nil
}

func (r *memStrategyRepo) List(_ context.Context, userID int64, _, _ int) ([]domain.Strategy, error) {
	out := []domain.Strategy{}
	for _, s := range r.strategies {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memStrategyRepo) GetByID(_ context.Context, userID, id int64) (domain.Strategy, error) {
	if r.getErr != nil {
		return domain.Strategy{}, r.getErr
	}
	s, ok := r.strategies[id]
	if !ok || s.UserID != userID {
		return domain.Strategy{}, pgx.ErrNoRows
	}
	return s, nil
}

func (r *memStrategyRepo) Update(ctx context.Context, s domain.Strategy) (domain.Strategy, error) {
	if _, err := r.GetByID(ctx, s.UserID, s.ID); err != nil {
		return domain.Strategy{}, err
	}
	r.strategies[s.ID] = s
	return s, nil
}

func (r *memStrategyRepo) Delete(ctx context.Context, userID, id int64) (domain.Strategy, error) {
	s, err := r.GetByID(ctx, userID, id)
	if err != nil {
		return s, err
	}
	delete(r.strategies, id)
	return s, nil
}

type memBotRepo struct {
	nextID int64
	bots   map[int64]domain.Bot
}

func newMemBotRepo(seed ...domain.Bot) *memBotRepo {
	r := &memBotRepo{bots: map[int64]domain.Bot{}}
	for _, b := range seed {
		if b.ID > r.nextID {
			r.nextID = b.ID
		}
		r.bots[b.ID] = b
	}
	return r
}

func (r *memBotRepo) Create(_ context.Context, b domain.Bot) (domain.Bot, error) {
	r.nextID++
	b.ID = r.nextID
	r.bots[b.ID] = b
	return b, nil
}

func (r *memBotRepo) List(_ context.Context, userID int64, _, _ int) ([]domain.Bot, error) {
	out := []domain.Bot{}
	for _, b := range r.bots {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memBotRepo) GetByID(_ context.Context, userID, id int64) (domain.Bot, error) {
	b, ok := r.bots[id]
	if !ok || b.UserID != userID {
		return domain.Bot{}, pgx.ErrNoRows
	}
	return b, nil
}

func (r *memBotRepo) Update(ctx context.Context, b domain.Bot) (domain.Bot, error) {
	if _, err := r.GetByID(ctx, b.UserID, b.ID); err != nil {
		return domain.Bot{}, err
	}
	r.bots[b.ID] = b
	return b, nil
}

func (r *memBotRepo) Delete(ctx context.Context, userID, id int64) (domain.Bot, error) {
	b, err := r.GetByID(ctx, userID, id)
	if err != nil {
		return b, err
	}
	delete(r.bots, id)
	return b, nil
}

type memCampaignRepo struct {
	nextID    int64
	campaigns map[int64]domain.Campaign
	launched  []int64
}

func newMemCampaignRepo(seed ...domain.Campaign) *memCampaignRepo {
	r := &memCampaignRepo{campaigns: map[int64]domain.Campaign{}}
	for _, c := range seed {
		if c.ID > r.nextID {
			r.nextID = c.ID
		}
		r.campaigns[c.ID] = c
	}
	return r
}

func (r *memCampaignRepo) Create(_ context.Context, c domain.Campaign) (domain.Campaign, error) {
	r.nextID++
	c.ID = r.nextID
	r.campaigns[c.ID] = c
	return c, nil
}

func (r *memCampaignRepo) List(_ context.Context, userID int64, _, _ int) ([]domain.Campaign, error) {
	out := []domain.Campaign{}
	for _, c := range r.campaigns {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memCampaignRepo) GetByID(_ context.Context, userID, id int64) (domain.Campaign, error) {
	c, ok := r.campaigns[id]
	if !ok || c.UserID != userID {
		return domain.Campaign{}, pgx.ErrNoRows
	}
	return c, nil
}

func (r *memCampaignRepo) Update(ctx context.Context, c domain.Campaign) (domain.Campaign, error) {
	if _, err := r.GetByID(ctx, c.UserID, c.ID); err != nil {
		return domain.Campaign{}, err
	}
	c.Strategy, c.Bot, c.DebtorDataset = nil, nil, nil
	r.campaigns[c.ID] = c
	return c, nil
}

func (r *memCampaignRepo) Delete(ctx context.Context, userID, id int64) (domain.Campaign, error) {
	c, err := r.GetByID(ctx, userID, id)
	if err != nil {
		return c, err
	}
	delete(r.campaigns, id)
	return c, nil
}

func (r *memCampaignRepo) MarkLaunched(ctx context.Context, userID, id int64) (domain.Campaign, error) {
	c, err := r.GetByID(ctx, userID, id)
	if err != nil {
		return c, err
	}
	c.Status = domain.CampaignActive
	if c.StartDate == nil {
		now := time.Now()
		c.StartDate = &now
	}
	r.campaigns[id] = c
	r.launched = append(r.launched, id)
	return c, nil
}

type savedTurn struct {
	history []domain.ChatMessage
	state   domain.State
}

type memConversationRepo struct {
	mu       sync.Mutex
	started  map[int64][]domain.ChatMessage
	campaign map[int64]int64
	saved    map[int64]savedTurn
	failFor  map[int64]bool
	// debtors, si está, recibe el historial y el estado guardados como lo
	// haría la tabla real.
	debtors *memDebtorRepo
}

func newMemConversationRepo() *memConversationRepo {
	return &memConversationRepo{
		started:  map[int64][]domain.ChatMessage{},
		campaign: map[int64]int64{},
		saved:    map[int64]savedTurn{},
		failFor:  map[int64]bool{},
	}
}

func (r *memConversationRepo) GetHistory(_ context.Context, debtorID int64) ([]domain.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.saved[debtorID]; ok {
		return t.history, nil
	}
	return r.started[debtorID], nil
}

func (r *memConversationRepo) SaveTurn(_ context.Context, debtorID int64, history []domain.ChatMessage, state domain.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFor[debtorID] {
		return errors.New("db down")
	}
	r.saved[debtorID] = savedTurn{history: append([]domain.ChatMessage(nil), history...), state: state}
	if r.debtors != nil {
		r.debtors.mu.Lock()
		d := r.debtors.debtors[debtorID]
		d.ConversationHistory = append([]domain.ChatMessage(nil), history...)
		d.State = state
		r.debtors.debtors[debtorID] = d
		r.debtors.mu.Unlock()
	}
	return nil
}

func (r *memConversationRepo) StartCampaign(_ context.Context, debtorID, campaignID int64, history []domain.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFor[debtorID] {
		return errors.New("db down")
	}
	r.started[debtorID] = append([]domain.ChatMessage(nil), history...)
	r.campaign[debtorID] = campaignID
	return nil
}

type sentMessage struct {
	to   string
	body string
}

type recordingSender struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor map[string]bool
}

func (s *recordingSender) Send(_ context.Context, to, body string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[to] {
		return "", errors.New("número inválido")
	}
	s.sent = append(s.sent, sentMessage{to: to, body: body})
	return "SM" + strings.TrimPrefix(to, "+"), nil
}

func (s *recordingSender) bodiesTo(to string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.sent {
		if m.to == to {
			out = append(out, m.body)
		}
	}
	return out
}

type recordingMailer struct {
	to       string
	campaign string
	report   domain.LaunchReport
	calls    int
}

func (m *recordingMailer) SendLaunchReport(_ context.Context, to, campaignName string, report domain.LaunchReport) error {
	m.calls++
	m.to, m.campaign, m.report = to, campaignName, report
	return nil
}

func int64Ptr(v int64) *int64 { return &v }
func strPtr(v string) *string { return &v }

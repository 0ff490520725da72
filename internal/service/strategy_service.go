package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cobranza-bot/internal/domain"
	"cobranza-bot/internal/repository"
)

// StrategyInput es el cuerpo que arma la consola. Las claves de
// rules_by_state llegan como texto y se validan contra los estados.
type StrategyInput struct {
	Name          *string                      `json:"name"`
	InitialPrompt *string                      `json:"initial_prompt"`
	RulesByState  map[string]domain.StateRules `json:"rules_by_state"`
}

type StrategyService struct {
	strategies repository.StrategyRepository
}

func NewStrategyService(strategies repository.StrategyRepository) *StrategyService {
	return &StrategyService{strategies: strategies}
}

func (s *StrategyService) List(ctx context.Context, userID int64, skip, limit int) ([]domain.Strategy, error) {
	skip, limit, err := normalizePage(skip, limit)
	if err != nil {
		return nil, err
	}
	return s.strategies.List(ctx, userID, skip, limit)
}

func (s *StrategyService) Get(ctx context.Context, userID, id int64) (domain.Strategy, error) {
	st, err := s.strategies.GetByID(ctx, userID, id)
	if err != nil {
		return domain.Strategy{}, notFound(err, ErrStrategyNotFound)
	}
	return st, nil
}

func (s *StrategyService) Create(ctx context.Context, userID int64, in StrategyInput) (domain.Strategy, error) {
	st := domain.Strategy{UserID: userID, RulesByState: map[domain.State]domain.StateRules{}}
	if err := applyStrategy(&st, in); err != nil {
		return domain.Strategy{}, err
	}
	if st.Name == "" {
		return domain.Strategy{}, invalid("name es obligatorio")
	}
	created, err := s.strategies.Create(ctx, st)
	if err != nil {
		return domain.Strategy{}, fmt.Errorf("create strategy: %w", err)
	}
	return created, nil
}

// Update es parcial; rules_by_state, si viene, reemplaza el documento completo.
func (s *StrategyService) Update(ctx context.Context, userID, id int64, in StrategyInput) (domain.Strategy, error) {
	st, err := s.Get(ctx, userID, id)
	if err != nil {
		return domain.Strategy{}, err
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return domain.Strategy{}, invalid("name no puede quedar vacío")
	}
	if err := applyStrategy(&st, in); err != nil {
		return domain.Strategy{}, err
	}
	updated, err := s.strategies.Update(ctx, st)
	if err != nil {
		return domain.Strategy{}, notFound(err, ErrStrategyNotFound)
	}
	return updated, nil
}

func (s *StrategyService) Delete(ctx context.Context, userID, id int64) (domain.Strategy, error) {
	st, err := s.strategies.Delete(ctx, userID, id)
	if err != nil {
		return domain.Strategy{}, notFound(err, ErrStrategyNotFound)
	}
	return st, nil
}

func applyStrategy(st *domain.Strategy, in StrategyInput) error {
	if in.Name != nil {
		st.Name = strings.TrimSpace(*in.Name)
	}
	if in.InitialPrompt != nil {
		st.InitialPrompt = strings.TrimSpace(*in.InitialPrompt)
	}
	if in.RulesByState != nil {
		rules, err := NormalizeRules(in.RulesByState)
		if err != nil {
			return err
		}
		st.RulesByState = rules
	}
	return nil
}

// NormalizeRules valida las claves de estado. Toda condicional necesita 'si'
// y 'accion' no vacíos.
func NormalizeRules(raw map[string]domain.StateRules) (map[domain.State]domain.StateRules, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[domain.State]domain.StateRules, len(raw))
	for _, key := range keys {
		state, ok := domain.ParseState(key)
		if !ok {
			return nil, invalid("Estado inválido en rules_by_state: %s", key)
		}
		if _, dup := out[state]; dup {
			return nil, invalid("Estado repetido en rules_by_state: %s", state)
		}
		rules := raw[key]
		clean := domain.StateRules{
			Prompt:       strings.TrimSpace(rules.Prompt),
			Conditionals: []domain.Conditional{},
		}
		for i, c := range rules.Conditionals {
			cond := domain.Conditional{If: strings.TrimSpace(c.If), Then: strings.TrimSpace(c.Then)}
			if cond.If == "" || cond.Then == "" {
				return nil, invalid("La condicional %d de %s necesita 'si' y 'accion'", i+1, state)
			}
			clean.Conditionals = append(clean.Conditionals, cond)
		}
		out[state] = clean
	}
	return out, nil
}

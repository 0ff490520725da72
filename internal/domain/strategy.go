package domain

import "time"

// Conditional es una regla "si X entonces Y" redactada por el operador.
// El texto es libre; se interpreta dentro del prompt del bot.
type Conditional struct {
	If   string `json:"si"`
	Then string `json:"accion"`
}

// StateRules son las instrucciones de una estrategia para un estado.
type StateRules struct {
	Prompt       string        `json:"prompt"`
	Conditionals []Conditional `json:"condicionales"`
}

type Strategy struct {
	ID            int64                `json:"id"`
	UserID        int64                `json:"-"`
	Name          string               `json:"name"`
	InitialPrompt string               `json:"initial_prompt"`
	RulesByState  map[State]StateRules `json:"rules_by_state"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// RulesFor devuelve las reglas de un estado y si estaban definidas.
func (s Strategy) RulesFor(state State) (StateRules, bool) {
	if s.RulesByState == nil {
		return StateRules{}, false
	}
	r, ok := s.RulesByState[state]
	return r, ok
}

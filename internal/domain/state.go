package domain

import "strings"

// State es el semáforo de intención de pago de un deudor.
type State string

const (
	StateVerde    State = "VERDE"    // decidido a pagar pronto
	StateAmarillo State = "AMARILLO" // interesado pero negocia o demora
	StateRojo     State = "ROJO"     // niega, evita o rechaza
	StateGris     State = "GRIS"     // sin respuesta o sin información
)

var validStates = map[State]struct{}{
	StateVerde:    {},
	StateAmarillo: {},
	StateRojo:     {},
	StateGris:     {},
}

// AllStates en el orden en que se muestran en la consola.
func AllStates() []State {
	return []State{StateVerde, StateAmarillo, StateRojo, StateGris}
}

func (s State) Valid() bool {
	_, ok := validStates[s]
	return ok
}

// Favorable indica los estados que no deben degradarse ante un turno cooperativo.
func (s State) Favorable() bool {
	return s == StateVerde || s == StateAmarillo
}

// ParseState normaliza y valida un estado. Devuelve false si no es válido.
func ParseState(raw string) (State, bool) {
	s := State(strings.ToUpper(strings.TrimSpace(raw)))
	return s, s.Valid()
}

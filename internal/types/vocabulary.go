package types

import (
	"fmt"
	"sort"
)

// Vocabulary is a declared, ordered set of values for a categorical field.
// The declaration order is the sort order.
type Vocabulary[T ~string] struct {
	values []T
	index  map[T]int
}

// NewVocabulary returns a vocabulary over values in the given order.
// Duplicate values are rejected.
func NewVocabulary[T ~string](values ...T) (*Vocabulary[T], error) {
	v := &Vocabulary[T]{
		values: make([]T, 0, len(values)),
		index:  make(map[T]int, len(values)),
	}
	for _, x := range values {
		if _, ok := v.index[x]; ok {
			return nil, fmt.Errorf("duplicate vocabulary value %q", string(x))
		}
		v.index[x] = len(v.values)
		v.values = append(v.values, x)
	}
	return v, nil
}

// MustVocabulary is NewVocabulary for package-level declarations.
func MustVocabulary[T ~string](values ...T) *Vocabulary[T] {
	v, err := NewVocabulary(values...)
	if err != nil {
		panic(err)
	}
	return v
}

func (v *Vocabulary[T]) Contains(x T) bool {
	_, ok := v.index[x]
	return ok
}

// Index returns the declared position of x, or -1 if x is not in the vocabulary.
func (v *Vocabulary[T]) Index(x T) int {
	if i, ok := v.index[x]; ok {
		return i
	}
	return -1
}

// Values returns a copy of the declared values in order.
func (v *Vocabulary[T]) Values() []T {
	out := make([]T, len(v.values))
	copy(out, v.values)
	return out
}

func (v *Vocabulary[T]) Len() int { return len(v.values) }

// Sort orders xs by declaration order. Unknown values go last, by name.
func (v *Vocabulary[T]) Sort(xs []T) {
	sort.SliceStable(xs, func(i, j int) bool {
		a, b := v.Index(xs[i]), v.Index(xs[j])
		switch {
		case a < 0 && b < 0:
			return xs[i] < xs[j]
		case a < 0:
			return false
		case b < 0:
			return true
		}
		return a < b
	})
}

// SIGMINE phase vocabulary.
const (
	PhaseAptoDisponibilidade       Phase = "APTO PARA DISPONIBILIDADE"
	PhaseAutorizacaoPesquisa       Phase = "AUTORIZAÇÃO DE PESQUISA"
	PhaseConcessaoLavra            Phase = "CONCESSÃO DE LAVRA"
	PhaseDadoNaoCadastrado         Phase = "DADO NÃO CADASTRADO"
	PhaseDireitoRequererLavra      Phase = "DIREITO DE REQUERER A LAVRA"
	PhaseDisponibilidade           Phase = "DISPONIBILIDADE"
	PhaseLavraGarimpeira           Phase = "LAVRA GARIMPEIRA"
	PhaseLicenciamento             Phase = "LICENCIAMENTO"
	PhaseRegistroExtracao          Phase = "REGISTRO DE EXTRAÇÃO"
	PhaseRequerimentoLavra         Phase = "REQUERIMENTO DE LAVRA"
	PhaseRequerimentoLavraGarimp   Phase = "REQUERIMENTO DE LAVRA GARIMPEIRA"
	PhaseRequerimentoLicenciamento Phase = "REQUERIMENTO DE LICENCIAMENTO"
	PhaseRequerimentoPesquisa      Phase = "REQUERIMENTO DE PESQUISA"
	PhaseRequerimentoRegistroExtr  Phase = "REQUERIMENTO DE REGISTRO DE EXTRAÇÃO"
)

// DefaultPhases is the phase vocabulary of the SIGMINE registry.
var DefaultPhases = MustVocabulary(
	PhaseAptoDisponibilidade,
	PhaseAutorizacaoPesquisa,
	PhaseConcessaoLavra,
	PhaseDadoNaoCadastrado,
	PhaseDireitoRequererLavra,
	PhaseDisponibilidade,
	PhaseLavraGarimpeira,
	PhaseLicenciamento,
	PhaseRegistroExtracao,
	PhaseRequerimentoLavra,
	PhaseRequerimentoLavraGarimp,
	PhaseRequerimentoLicenciamento,
	PhaseRequerimentoPesquisa,
	PhaseRequerimentoRegistroExtr,
)

// TitleholderPhases are the phases that carry full mining rights.
var TitleholderPhases = []Phase{
	PhaseAutorizacaoPesquisa,
	PhaseConcessaoLavra,
	PhaseDireitoRequererLavra,
	PhaseLavraGarimpeira,
	PhaseLicenciamento,
	PhaseRegistroExtracao,
	PhaseRequerimentoLavra,
}

// IsTitleholderPhase reports whether p is one of TitleholderPhases.
func IsTitleholderPhase(p Phase) bool {
	for _, t := range TitleholderPhases {
		if t == p {
			return true
		}
	}
	return false
}

// DefaultStates lists the 27 UFs alphabetically.
var DefaultStates = MustVocabulary[State](
	"AC", "AL", "AM", "AP", "BA", "CE", "DF", "ES", "GO",
	"MA", "MG", "MS", "MT", "PA", "PB", "PE", "PI", "PR",
	"RJ", "RN", "RO", "RR", "RS", "SC", "SE", "SP", "TO",
)

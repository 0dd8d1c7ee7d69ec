// =============================================================================
// PCA Consolidation - DFD Wizard
// =============================================================================
//
// The DFD (Documento de Formalização da Demanda) is filled in four steps:
//
//   Identificacao -> Itens -> Justificativa -> Revisao -> Concluido
//
// State is a plain value. Advance and Back take a State and return a new
// one, so a caller can keep any earlier State around (undo, retries) and
// nothing is shared between calls.
//
// Each step accepts exactly one payload type. Handing a payload to the
// wrong step returns ErrInvalidTransition; a payload that fails its checks
// returns a *ValidationError and leaves the step unchanged.
//
// =============================================================================

package wizard

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/pca-consolidation/internal/store"
	"github.com/ginjaninja78/pca-consolidation/internal/types"
)

// ErrInvalidTransition is returned when a payload does not belong to the
// current step, or when moving past either end of the wizard.
var ErrInvalidTransition = errors.New("invalid wizard transition")

// MinJustificationLength is the shortest accepted justification, in
// characters after trimming.
const MinJustificationLength = 20

// Step is a wizard step.
type Step int

const (
	StepIdentification Step = iota
	StepItems
	StepJustification
	StepReview
	StepDone
)

var stepNames = [...]string{"Identificacao", "Itens", "Justificativa", "Revisao", "Concluido"}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return fmt.Sprintf("Step(%d)", int(s))
	}
	return stepNames[s]
}

// =============================================================================
// PAYLOADS
// =============================================================================

// Payload is the data submitted at one step. The set of payloads is closed.
type Payload interface {
	step() Step
}

// Identification identifies the demand.
type Identification struct {
	Secretariat     string
	DocumentType    string
	Priority        types.Priority
	ContractingDate string
}

// Items lists what is being requested.
type Items struct {
	Items []store.Item
}

// Justification explains the need.
type Justification struct {
	Text string
}

// Review confirms the filled document.
type Review struct {
	Confirmed bool
}

func (Identification) step() Step { return StepIdentification }
func (Items) step() Step          { return StepItems }
func (Justification) step() Step  { return StepJustification }
func (Review) step() Step         { return StepReview }

// ValidationError lists what is wrong with a payload.
type ValidationError struct {
	Step     Step
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Step, strings.Join(e.Problems, "; "))
}

// =============================================================================
// STATE
// =============================================================================

// State is the wizard's progress.
type State struct {
	// DocumentID is assigned when the wizard starts and becomes the stored
	// document's id.
	DocumentID string

	Step           Step
	Identification Identification
	Items          []store.Item
	Justification  string
}

// Start returns a fresh state at the first step.
func Start() State {
	return State{DocumentID: uuid.NewString(), Step: StepIdentification}
}

// Advance validates p against the current step and returns the state at
// the next step.
func Advance(s State, p Payload) (State, error) {
	if s.Step == StepDone {
		return s, fmt.Errorf("wizard already finished: %w", ErrInvalidTransition)
	}
	if p == nil || p.step() != s.Step {
		return s, fmt.Errorf("%T submitted at step %s: %w", p, s.Step, ErrInvalidTransition)
	}

	next := s.clone()

	switch v := p.(type) {
	case Identification:
		if err := validateIdentification(v); err != nil {
			return s, err
		}
		v.Secretariat = strings.TrimSpace(v.Secretariat)
		v.DocumentType = strings.TrimSpace(v.DocumentType)
		next.Identification = v

	case Items:
		if err := validateItems(v); err != nil {
			return s, err
		}
		next.Items = append([]store.Item(nil), v.Items...)

	case Justification:
		if err := validateJustification(v); err != nil {
			return s, err
		}
		next.Justification = strings.TrimSpace(v.Text)

	case Review:
		if !v.Confirmed {
			return s, &ValidationError{Step: StepReview, Problems: []string{"document must be confirmed"}}
		}
	}

	next.Step++
	return next, nil
}

// Back returns the state at the previous step. Entered data is kept.
func Back(s State) (State, error) {
	if s.Step == StepIdentification || s.Step == StepDone {
		return s, fmt.Errorf("cannot go back from %s: %w", s.Step, ErrInvalidTransition)
	}
	next := s.clone()
	next.Step--
	return next, nil
}

// Document builds the pending document of a finished wizard.
func (s State) Document() (store.Document, error) {
	if s.Step != StepDone {
		return store.Document{}, fmt.Errorf("wizard is at %s: %w", s.Step, ErrInvalidTransition)
	}
	return store.Document{
		ID:              s.DocumentID,
		DocumentType:    s.Identification.DocumentType,
		Secretariat:     s.Identification.Secretariat,
		Status:          store.StatusPending,
		Priority:        s.Identification.Priority,
		ContractingDate: s.Identification.ContractingDate,
		Justification:   s.Justification,
		Items:           append([]store.Item(nil), s.Items...),
	}, nil
}

// Total is the estimated value of the entered items.
func (s State) Total() float64 {
	var total float64
	for _, it := range s.Items {
		total += it.Quantity * it.UnitPrice
	}
	return total
}

func (s State) clone() State {
	s.Items = append([]store.Item(nil), s.Items...)
	return s
}

// =============================================================================
// VALIDATION
// =============================================================================

func validateIdentification(v Identification) error {
	var problems []string
	if strings.TrimSpace(v.Secretariat) == "" {
		problems = append(problems, "secretariat is required")
	}
	if strings.TrimSpace(v.DocumentType) == "" {
		problems = append(problems, "document type is required")
	}
	if !v.Priority.Known() {
		problems = append(problems, fmt.Sprintf("priority %q is not one of Alta, Média, Baixa", v.Priority))
	}
	if _, err := time.Parse("2006-01-02", v.ContractingDate); err != nil {
		problems = append(problems, fmt.Sprintf("contracting date %q is not YYYY-MM-DD", v.ContractingDate))
	}
	return problemsError(StepIdentification, problems)
}

func validateItems(v Items) error {
	if len(v.Items) == 0 {
		return problemsError(StepItems, []string{"at least one item is required"})
	}

	var problems []string
	for i, it := range v.Items {
		n := i + 1
		if strings.TrimSpace(it.Description) == "" {
			problems = append(problems, fmt.Sprintf("item %d: description is required", n))
		}
		if strings.TrimSpace(it.Unit) == "" {
			problems = append(problems, fmt.Sprintf("item %d: unit is required", n))
		}
		if math.IsNaN(it.Quantity) || math.IsInf(it.Quantity, 0) || it.Quantity <= 0 {
			problems = append(problems, fmt.Sprintf("item %d: quantity must be positive", n))
		}
		if math.IsNaN(it.UnitPrice) || math.IsInf(it.UnitPrice, 0) || it.UnitPrice < 0 {
			problems = append(problems, fmt.Sprintf("item %d: unit price must not be negative", n))
		}
	}
	return problemsError(StepItems, problems)
}

func validateJustification(v Justification) error {
	if n := len([]rune(strings.TrimSpace(v.Text))); n < MinJustificationLength {
		return problemsError(StepJustification, []string{
			fmt.Sprintf("justification has %d characters, at least %d required", n, MinJustificationLength),
		})
	}
	return nil
}

func problemsError(step Step, problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Step: step, Problems: problems}
}

package wizard

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/pca-consolidation/internal/store"
	"github.com/ginjaninja78/pca-consolidation/internal/types"
)

var (
	identification = Identification{
		Secretariat:     " Educação ",
		DocumentType:    "MATERIAIS DE CONSUMO",
		Priority:        types.PriorityHigh,
		ContractingDate: "2024-03-01",
	}
	items = Items{Items: []store.Item{
		{Description: "Arroz tipo 1", Quantity: 200, UnitPrice: 4.5, Unit: "kg"},
		{Description: "Feijão carioca", Quantity: 100, UnitPrice: 7, Unit: "kg"},
	}}
	justification = Justification{Text: "Atendimento da merenda escolar no primeiro semestre."}
)

func advanceAll(t *testing.T, payloads ...Payload) State {
	t.Helper()
	state := Start()
	for _, p := range payloads {
		var err error
		state, err = Advance(state, p)
		require.NoError(t, err)
	}
	return state
}

func TestAdvance_HappyPath(t *testing.T) {
	state := advanceAll(t, identification, items, justification, Review{Confirmed: true})

	assert.Equal(t, StepDone, state.Step)
	assert.Equal(t, "Educação", state.Identification.Secretariat)
	assert.InDelta(t, 1600.0, state.Total(), 1e-9)

	doc, err := state.Document()
	require.NoError(t, err)
	assert.Equal(t, state.DocumentID, doc.ID)
	assert.Equal(t, store.StatusPending, doc.Status)
	assert.Equal(t, types.PriorityHigh, doc.Priority)
	assert.Len(t, doc.Items, 2)
}

func TestAdvance_ReturnsNewState(t *testing.T) {
	start := Start()
	next, err := Advance(start, identification)
	require.NoError(t, err)

	assert.Equal(t, StepIdentification, start.Step, "the input state is not modified")
	assert.Equal(t, StepItems, next.Step)
	assert.Equal(t, start.DocumentID, next.DocumentID)

	withItems, err := Advance(next, items)
	require.NoError(t, err)
	withItems.Items[0].Description = "changed"
	assert.Equal(t, "Arroz tipo 1", items.Items[0].Description, "payload slices are copied")
}

func TestAdvance_WrongStep(t *testing.T) {
	state := Start()

	_, err := Advance(state, items)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = Advance(state, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	done := advanceAll(t, identification, items, justification, Review{Confirmed: true})
	_, err = Advance(done, Review{Confirmed: true})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAdvance_Validation(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		payload Payload
		problem string
	}{
		{
			name:    "missing secretariat",
			state:   Start(),
			payload: Identification{DocumentType: "X", Priority: types.PriorityLow, ContractingDate: "2024-01-01"},
			problem: "secretariat is required",
		},
		{
			name:    "unknown priority",
			state:   Start(),
			payload: Identification{Secretariat: "S", DocumentType: "X", Priority: "Urgente", ContractingDate: "2024-01-01"},
			problem: `priority "Urgente"`,
		},
		{
			name:    "bad date",
			state:   Start(),
			payload: Identification{Secretariat: "S", DocumentType: "X", Priority: types.PriorityLow, ContractingDate: "01/03/2024"},
			problem: "not YYYY-MM-DD",
		},
		{
			name:    "no items",
			state:   advanceAll(t, identification),
			payload: Items{},
			problem: "at least one item",
		},
		{
			name:    "bad quantity",
			state:   advanceAll(t, identification),
			payload: Items{Items: []store.Item{{Description: "Arroz", Unit: "kg", Quantity: math.NaN()}}},
			problem: "item 1: quantity must be positive",
		},
		{
			name:    "short justification",
			state:   advanceAll(t, identification, items),
			payload: Justification{Text: "  merenda  "},
			problem: "justification has 7 characters",
		},
		{
			name:    "unconfirmed review",
			state:   advanceAll(t, identification, items, justification),
			payload: Review{},
			problem: "must be confirmed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Advance(tt.state, tt.payload)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Contains(t, verr.Error(), tt.problem)
			assert.Equal(t, tt.state.Step, got.Step, "failed payloads keep the step")
		})
	}
}

func TestBack(t *testing.T) {
	state := advanceAll(t, identification, items)

	prev, err := Back(state)
	require.NoError(t, err)
	assert.Equal(t, StepItems, prev.Step)
	assert.Len(t, prev.Items, 2, "entered data survives going back")

	first, err := Back(Start())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StepIdentification, first.Step)

	done := advanceAll(t, identification, items, justification, Review{Confirmed: true})
	_, err = Back(done)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestDocument_Unfinished(t *testing.T) {
	_, err := advanceAll(t, identification).Document()
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStepString(t *testing.T) {
	assert.Equal(t, "Identificacao", StepIdentification.String())
	assert.Equal(t, "Concluido", StepDone.String())
	assert.Equal(t, "Step(9)", Step(9).String())
}

func TestRunDraft(t *testing.T) {
	draft, err := DecodeDraft(strings.NewReader(`
secretaria: Educação
tipo_documento: MATERIAIS DE CONSUMO
prioridade: Alta
data_contratacao: "2024-03-01"
justificativa: Atendimento da merenda escolar no primeiro semestre.
itens:
  - descricao: Arroz tipo 1
    quantidade: 200
    valor_unitario: 4.5
    unidade: kg
    codigo: CATMAT 1234
`))
	require.NoError(t, err)

	state, err := Run(draft)
	require.NoError(t, err)
	assert.Equal(t, StepDone, state.Step)
	require.Len(t, state.Items, 1)
	assert.Equal(t, "CATMAT 1234", state.Items[0].Code)

	draft.Justification = ""
	state, err = Run(draft)
	assert.Error(t, err)
	assert.Equal(t, StepJustification, state.Step)
}

func TestDecodeDraft_UnknownField(t *testing.T) {
	_, err := DecodeDraft(strings.NewReader("secretaria: Educação\nprioridad: Alta\n"))
	assert.Error(t, err)
}

package wizard

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/pca-consolidation/internal/store"
	"github.com/ginjaninja78/pca-consolidation/internal/types"
)

// Draft is a DFD written as YAML, the non-interactive input of `pca dfd new`.
//
//	secretaria: Educação
//	tipo_documento: MATERIAIS DE CONSUMO
//	prioridade: Alta
//	data_contratacao: "2024-03-01"
//	justificativa: Atendimento da merenda escolar no primeiro semestre.
//	itens:
//	  - descricao: Arroz tipo 1
//	    quantidade: 200
//	    valor_unitario: 4.5
//	    unidade: kg
type Draft struct {
	Secretariat     string      `yaml:"secretaria"`
	DocumentType    string      `yaml:"tipo_documento"`
	Priority        string      `yaml:"prioridade"`
	ContractingDate string      `yaml:"data_contratacao"`
	Justification   string      `yaml:"justificativa"`
	Items           []DraftItem `yaml:"itens"`
}

// DraftItem is one item of a Draft.
type DraftItem struct {
	Description string  `yaml:"descricao"`
	Quantity    float64 `yaml:"quantidade"`
	UnitPrice   float64 `yaml:"valor_unitario"`
	Unit        string  `yaml:"unidade"`
	Code        string  `yaml:"codigo"`
}

// LoadDraft reads a YAML draft from path.
func LoadDraft(path string) (*Draft, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open draft: %w", err)
	}
	defer f.Close()

	return DecodeDraft(f)
}

// DecodeDraft reads a YAML draft. Unknown keys are rejected so typos in
// field names do not silently drop data.
func DecodeDraft(r io.Reader) (*Draft, error) {
	var draft Draft
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&draft); err != nil {
		return nil, fmt.Errorf("failed to parse draft: %w", err)
	}
	return &draft, nil
}

// Payloads returns the draft as the sequence of step payloads, ending with
// a confirmed review.
func (d *Draft) Payloads() []Payload {
	items := make([]store.Item, len(d.Items))
	for i, it := range d.Items {
		items[i] = store.Item{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Unit:        it.Unit,
			Code:        it.Code,
		}
	}

	return []Payload{
		Identification{
			Secretariat:     d.Secretariat,
			DocumentType:    d.DocumentType,
			Priority:        types.Priority(d.Priority),
			ContractingDate: d.ContractingDate,
		},
		Items{Items: items},
		Justification{Text: d.Justification},
		Review{Confirmed: true},
	}
}

// Run drives a fresh wizard through every payload of the draft. On error
// the state reached so far is returned with it.
func Run(d *Draft) (State, error) {
	state := Start()
	for _, p := range d.Payloads() {
		next, err := Advance(state, p)
		if err != nil {
			return state, err
		}
		state = next
	}
	return state, nil
}

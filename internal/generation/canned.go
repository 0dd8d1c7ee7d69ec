package generation

import (
	"context"
	"strings"
	"time"

	"github.com/ginjaninja78/pca-consolidation/internal/logging"
)

// templates holds the canned text per kind and section. {objeto} and
// {secretaria} are substituted from the request.
var templates = map[Kind]map[string]string{
	KindDFD: {
		"justificativa": "A presente demanda tem por finalidade atender às necessidades de {secretaria} " +
			"quanto a {objeto}, garantindo a continuidade dos serviços prestados à população. " +
			"A contratação está alinhada ao planejamento anual e evita a interrupção de atividades essenciais.",
		"necessidade": "Identificou-se a necessidade de {objeto} para o exercício corrente, " +
			"considerando o consumo histórico e a demanda prevista por {secretaria}.",
		"resultados": "Espera-se, com a aquisição de {objeto}, a regularidade no atendimento, " +
			"a redução de custos por meio da compra consolidada e o melhor aproveitamento dos recursos públicos.",
	},
	KindTR: {
		"objeto": "O presente Termo de Referência tem por objeto a contratação de {objeto}, " +
			"conforme condições, quantidades e exigências estabelecidas neste instrumento.",
		"justificativa": "A contratação de {objeto} justifica-se pela necessidade de {secretaria} " +
			"de manter suas atividades, conforme Documento de Formalização da Demanda aprovado.",
		"especificacao": "Os itens de {objeto} deverão atender às especificações técnicas mínimas descritas " +
			"no Anexo I, observadas as normas técnicas vigentes e a legislação aplicável.",
		"obrigacoes": "A contratada obriga-se a fornecer {objeto} nos prazos e locais indicados por {secretaria}, " +
			"responsabilizando-se pela qualidade e pela substituição de itens com defeito.",
	},
	KindEdital: {
		"objeto": "A presente licitação tem por objeto o registro de preços para eventual contratação de {objeto}, " +
			"conforme especificações constantes do Termo de Referência.",
		"habilitacao": "Para habilitação no certame referente a {objeto}, os licitantes deverão apresentar " +
			"documentação relativa à habilitação jurídica, à regularidade fiscal e trabalhista e à qualificação técnica.",
		"julgamento": "O julgamento das propostas para {objeto} será realizado pelo critério de menor preço por item, " +
			"observadas as exigências deste Edital e de seus anexos.",
	},
}

// DefaultDelay is the simulated generation latency.
const DefaultDelay = 1500 * time.Millisecond

// Canned returns static texts after Delay. A zero Delay returns at once.
type Canned struct {
	Delay time.Duration
}

// NewCanned returns a canned generator. A negative delay means none.
func NewCanned(delay time.Duration) *Canned {
	if delay < 0 {
		delay = 0
	}
	return &Canned{Delay: delay}
}

// Generate waits for the delay (or ctx), then returns the template for the
// requested section with the object and secretariat filled in.
func (c *Canned) Generate(ctx context.Context, req Request) (string, error) {
	tmpl, err := lookup(req)
	if err != nil {
		return "", err
	}

	if c.Delay > 0 {
		timer := time.NewTimer(c.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	text := strings.NewReplacer(
		"{objeto}", objectOrDefault(req.Object),
		"{secretaria}", secretariatOrDefault(req.Secretariat),
	).Replace(tmpl)

	logging.FromContext(ctx).Debug().
		Str("kind", string(req.Kind)).
		Str("section", req.Section).
		Msg("canned text generated")

	return text, nil
}

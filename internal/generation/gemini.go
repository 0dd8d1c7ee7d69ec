package generation

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/ginjaninja78/pca-consolidation/internal/logging"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

const systemInstruction = "Você é um servidor público especialista em licitações e contratos " +
	"(Lei nº 14.133/2021). Redija textos formais, objetivos e em português do Brasil, " +
	"sem títulos, listas ou comentários adicionais."

// Gemini drafts text with a Gemini model.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini API client.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required (set PCA_GENERATOR_API_KEY)")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Gemini{client: client, model: model}, nil
}

// Generate asks the model for the requested section. The canned template
// is included in the prompt as a reference for tone and length.
func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	tmpl, err := lookup(req)
	if err != nil {
		return "", err
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.4),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(buildPrompt(req, tmpl)), config)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("GenAI returned no text")
	}

	logging.FromContext(ctx).Debug().
		Str("model", g.model).
		Str("kind", string(req.Kind)).
		Str("section", req.Section).
		Int("chars", len(text)).
		Msg("gemini text generated")

	return text, nil
}

func buildPrompt(req Request, reference string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Documento: %s\n", req.Kind)
	fmt.Fprintf(&b, "Seção: %s\n", strings.ToLower(strings.TrimSpace(req.Section)))
	fmt.Fprintf(&b, "Objeto: %s\n", objectOrDefault(req.Object))
	fmt.Fprintf(&b, "Secretaria: %s\n\n", secretariatOrDefault(req.Secretariat))
	b.WriteString("Redija o texto desta seção em um único parágrafo. Modelo de referência:\n")
	b.WriteString(reference)
	return b.String()
}

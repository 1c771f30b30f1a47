package tools

import (
	"context"
	"fmt"
	"strings"

	"inmobot/models"

	openai "github.com/sashabaranov/go-openai"
)

const defaultSystemPrompt = "Eres el asistente virtual de una inmobiliaria. Responde en español, " +
	"de forma breve y amable, usando solo las propiedades del contexto. Cita siempre la referencia " +
	"(REF-...) de las propiedades que menciones. Si tienes información del manual, úsala. " +
	"Si ninguna propiedad encaja, dilo y sugiere escribir \"menu\"."

// OpenAI answers questions and computes embeddings through any OpenAI-compatible
// endpoint (api.openai.com, Azure gateways, Ollama's /v1).
type OpenAI struct {
	client         *openai.Client
	model          string
	embeddingModel string
	systemPrompt   string
}

func NewOpenAI(apiKey, baseURL, model, embeddingModel, systemPrompt string) *OpenAI {
	cfg := openai.DefaultConfig(strings.TrimSpace(apiKey))
	if u := strings.TrimSpace(baseURL); u != "" {
		cfg.BaseURL = strings.TrimRight(u, "/")
	}
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = defaultSystemPrompt
	}
	return &OpenAI{
		client:         openai.NewClientWithConfig(cfg),
		model:          model,
		embeddingModel: embeddingModel,
		systemPrompt:   systemPrompt,
	}
}

// Answer asks the chat model with the candidates and manual passages as context.
func (o *OpenAI) Answer(ctx context.Context, question string, candidates []models.Listing, manual []string) (string, error) {
	var prompt strings.Builder
	if len(manual) > 0 {
		prompt.WriteString("INFORMACIÓN DEL MANUAL:\n")
		prompt.WriteString(strings.Join(manual, "\n\n"))
		prompt.WriteString("\n\n")
	}
	prompt.WriteString("PROPIEDADES DISPONIBLES:\n")
	if len(candidates) == 0 {
		prompt.WriteString("(ninguna coincide con la consulta)\n")
	}
	for _, l := range candidates {
		prompt.WriteString("- ")
		prompt.WriteString(ListingDocument(l))
		prompt.WriteString("\n")
	}
	prompt.WriteString("\nPREGUNTA DEL CLIENTE:\n")
	prompt.WriteString(question)

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: o.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt.String()},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("%w: openai chat: %v", models.ErrUpstreamUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai chat: no choices", models.ErrUpstreamUnavailable)
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", fmt.Errorf("%w: openai chat: empty response", models.ErrUpstreamUnavailable)
	}
	return out, nil
}

// Embed returns the embedding of a single text.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float64, error) {
	vecs, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one request, preserving order.
func (o *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(o.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: openai embeddings: %v", models.ErrUpstreamUnavailable, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: openai embeddings: got %d vectors for %d inputs", models.ErrUpstreamUnavailable, len(resp.Data), len(texts))
	}

	out := make([][]float64, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) || len(d.Embedding) == 0 {
			return nil, fmt.Errorf("%w: openai embeddings: bad vector at index %d", models.ErrUpstreamUnavailable, d.Index)
		}
		v := make([]float64, len(d.Embedding))
		for i, x := range d.Embedding {
			v[i] = float64(x)
		}
		out[d.Index] = v
	}
	return out, nil
}

// ListingDocument is the text a listing is embedded and described with.
func ListingDocument(l models.Listing) string {
	parts := []string{l.Reference, l.Kind}
	switch l.Operation {
	case models.LISTING_OPERATION_SALE:
		parts = append(parts, "venta")
	case models.LISTING_OPERATION_RENT:
		parts = append(parts, "alquiler")
	case models.LISTING_OPERATION_BOTH:
		parts = append(parts, "venta y alquiler")
	}
	if l.Price > 0 {
		parts = append(parts, fmt.Sprintf("%.0f EUR", l.Price))
	} else {
		parts = append(parts, "precio a consultar")
	}
	if l.Bedrooms != nil {
		parts = append(parts, fmt.Sprintf("%d habitaciones", *l.Bedrooms))
	}
	if l.Bathrooms != nil {
		parts = append(parts, fmt.Sprintf("%d baños", *l.Bathrooms))
	}
	if l.Area != nil {
		parts = append(parts, fmt.Sprintf("%.0f m2", *l.Area))
	}
	for _, s := range []string{l.Address, l.Zone, l.City, l.Department} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	if tags := l.Tags(); len(tags) > 0 {
		parts = append(parts, strings.Join(tags, ", "))
	}
	if d := strings.TrimSpace(l.Description); d != "" {
		parts = append(parts, d)
	}
	return strings.Join(nonEmpty(parts), " | ")
}

func nonEmpty(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

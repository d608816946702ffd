package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/tripbuddy/tripbuddy-api/internal/config"
	"github.com/tripbuddy/tripbuddy-api/internal/domain"
	"github.com/tripbuddy/tripbuddy-api/internal/generation"
	"github.com/tripbuddy/tripbuddy-api/internal/platform/logger"
)

const systemInstruction = `You are a professional travel planner. Your task is to generate detailed day-wise travel itineraries based on user preferences. Always respond only in valid JSON that follows the exact structure provided. Do not include explanations, text, or formatting outside the JSON.`

// usageMeta is the provider accounting persisted opaquely with each result.
type usageMeta struct {
	Model            string `json:"model"`
	PromptTokens     int32  `json:"prompt_tokens"`
	CandidateTokens  int32  `json:"candidate_tokens"`
	TotalTokens      int32  `json:"total_tokens"`
	DurationMillis   int64  `json:"duration_ms"`
	GeneratedAtEpoch int64  `json:"generated_at"`
}

// Planner implements the generation.Planner interface backed by the Gemini
// API.
type Planner struct {
	client *genai.Client
	config config.LLMConfig
	logger *slog.Logger
}

// NewPlanner creates a new Gemini-backed planner.
func NewPlanner(ctx context.Context, cfg config.LLMConfig, log *slog.Logger) (*Planner, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}
	if log == nil {
		log = slog.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return &Planner{
		client: client,
		config: cfg,
		logger: log.With(slog.String("component", "gemini_planner")),
	}, nil
}

// Ensure Planner implements generation.Planner
var _ generation.Planner = (*Planner)(nil)

// GeneratePlan implements generation.Planner.GeneratePlan.
func (p *Planner) GeneratePlan(ctx context.Context, params generation.Params) (*generation.Result, error) {
	log := logger.FromContextOrDefault(ctx, p.logger)

	if len(params.Cities) == 0 {
		return nil, fmt.Errorf("%w: no cities given", generation.ErrInvalidConfig)
	}

	if p.config.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(p.config.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	prompt := buildPrompt(params)
	started := time.Now()

	text, usage, err := p.callWithRetry(ctx, prompt, log)
	if err != nil {
		return nil, err
	}

	plan, err := parsePlan(text)
	if err != nil {
		return nil, err
	}

	meta, err := json.Marshal(usageMeta{
		Model:            p.config.ModelName,
		PromptTokens:     usage.prompt,
		CandidateTokens:  usage.candidates,
		TotalTokens:      usage.total,
		DurationMillis:   time.Since(started).Milliseconds(),
		GeneratedAtEpoch: time.Now().Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal usage meta: %w", err)
	}

	log.Info("plan generated",
		slog.Int("day_count", len(plan.Days)),
		slog.Int64("duration_ms", time.Since(started).Milliseconds()))

	return &generation.Result{
		Plan: plan,
		Key:  generation.Key(params),
		Meta: meta,
	}, nil
}

type tokenUsage struct {
	prompt     int32
	candidates int32
	total      int32
}

// callWithRetry calls the Gemini API with exponential backoff and jitter for
// transient errors. Permanent errors (blocked content, unparseable response)
// return immediately.
func (p *Planner) callWithRetry(ctx context.Context, prompt string, log *slog.Logger) (string, tokenUsage, error) {
	maxRetries := p.config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	baseDelaySeconds := p.config.RetryDelaySeconds
	if baseDelaySeconds < 1 {
		baseDelaySeconds = 2
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		log.Debug("calling Gemini API",
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", maxRetries+1))

		text, usage, err := p.callOnce(ctx, prompt)
		if err == nil {
			return text, usage, nil
		}
		lastErr = err

		if errors.Is(err, generation.ErrContentBlocked) || errors.Is(err, generation.ErrInvalidResponse) {
			return "", tokenUsage{}, err
		}

		if attempt >= maxRetries {
			break
		}

		// delay = base * 2^attempt * jitter in [0.5, 1.0)
		backoff := float64(baseDelaySeconds) * math.Pow(2, float64(attempt))
		delay := time.Duration(backoff * (0.5 + rng.Float64()*0.5) * float64(time.Second))

		log.Warn("Gemini call failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", tokenUsage{}, fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}
	}

	return "", tokenUsage{}, fmt.Errorf("%w: exceeded %d attempts: %v",
		generation.ErrTransientFailure, maxRetries+1, lastErr)
}

// callOnce performs a single GenerateContent call.
func (p *Planner) callOnce(ctx context.Context, prompt string) (string, tokenUsage, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.config.ModelName,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
			ResponseMIMEType:  "application/json",
			Temperature:       genai.Ptr[float32](0.2),
		})
	if err != nil {
		return "", tokenUsage{}, fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", tokenUsage{}, fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "", tokenUsage{}, fmt.Errorf("%w: blocked by safety filters", generation.ErrContentBlocked)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	text := sb.String()
	if text == "" {
		return "", tokenUsage{}, fmt.Errorf("%w: empty response text", generation.ErrInvalidResponse)
	}

	var usage tokenUsage
	if resp.UsageMetadata != nil {
		usage.prompt = resp.UsageMetadata.PromptTokenCount
		usage.candidates = resp.UsageMetadata.CandidatesTokenCount
		usage.total = resp.UsageMetadata.TotalTokenCount
	}

	return text, usage, nil
}

// buildPrompt renders the user prompt for the given parameters.
func buildPrompt(params generation.Params) string {
	start := params.StartDate.UTC().Format("2006-01-02")
	end := params.EndDate.UTC().Format("2006-01-02")

	var sb strings.Builder
	sb.WriteString("Generate a day-wise travel itinerary in valid JSON format based on the following preferences:\n\n")
	fmt.Fprintf(&sb, "- Start Date: %s\n", start)
	fmt.Fprintf(&sb, "- End Date: %s\n", end)
	fmt.Fprintf(&sb, "- Budget: %s %d-%s %d\n", params.Currency, params.MinBudget, params.Currency, params.MaxBudget)
	fmt.Fprintf(&sb, "- Cities: %s\n", strings.Join(params.Cities, ", "))
	fmt.Fprintf(&sb, "- Interests: %s\n", strings.Join(params.Interests, ", "))
	sb.WriteString("\nRequirements:\n")
	fmt.Fprintf(&sb, "- Divide the trip from %s to %s into daily entries.\n", start, end)
	sb.WriteString("- Each day must include 2-3 attractions.\n")
	sb.WriteString("- For every attraction, include:\n")
	sb.WriteString("  - name: Name of the attraction\n")
	sb.WriteString("  - timeToSpend: Suggested time to spend (e.g., \"2 hours\")\n")
	sb.WriteString("  - address: General or specific location\n")
	sb.WriteString("  - thingsToDo: Key activities or highlights\n")
	sb.WriteString("- Do not include any text, explanation, or formatting outside of the JSON.\n")
	sb.WriteString("\nOutput Format (strictly follow this structure):\n")
	sb.WriteString(`{
  "days": [
    {
      "day": 1,
      "places": [
        {
          "name": "PLACE_NAME",
          "timeToSpend": "TIME_STRING",
          "address": "PLACE_ADDRESS",
          "thingsToDo": "DESCRIPTION"
        }
      ]
    }
  ]
}`)
	return sb.String()
}

// parsePlan decodes the strict-JSON response into a domain.Plan. Models
// occasionally wrap JSON in a markdown fence despite instructions, so fences
// are stripped before decoding.
func parsePlan(text string) (*domain.Plan, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var plan domain.Plan
	if err := json.Unmarshal([]byte(cleaned), &plan); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", generation.ErrInvalidResponse, err)
	}

	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrInvalidResponse, err)
	}

	return &plan, nil
}

package generation

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/restyle-platform/restyle/internal/api"
	"github.com/restyle-platform/restyle/internal/config"
	"github.com/restyle-platform/restyle/internal/metrics"
)

const (
	analysisTemperature  = 0.4
	analysisMaxTokens    = 2048
	fallbackChangeLength = 200
)

// Service runs the two-stage restyling pipeline: an analysis call that plans
// the changes, then a synthesis call that renders them. Stage 2 consumes
// stage 1's parsed output, so the stages are strictly sequential.
type Service struct {
	model ModelClient
	cfg   config.AIConfig
}

func NewService(model ModelClient, cfg config.AIConfig) *Service {
	return &Service{model: model, cfg: cfg}
}

// Generate produces the restyled image plus the analysis explaining it.
// It has no side effects beyond the two model calls.
func (s *Service) Generate(ctx context.Context, req *Request) (*Result, error) {
	if len(req.RoomPhoto) == 0 {
		return nil, api.NewBadRequestError("room photo is required")
	}
	if s.cfg.APIKey == "" {
		slog.Error("generation service has no AI API key")
		return nil, api.ErrServerMisconfigured
	}

	analysis, err := s.analyze(ctx, req)
	if err != nil {
		metrics.GenerationsTotal.WithLabelValues("analysis_error").Inc()
		return nil, err
	}

	image, err := s.synthesize(ctx, req, analysis)
	if err != nil {
		metrics.GenerationsTotal.WithLabelValues("synthesis_error").Inc()
		return nil, err
	}

	metrics.GenerationsTotal.WithLabelValues("ok").Inc()
	return &Result{GeneratedImage: image, Analysis: *analysis}, nil
}

func (s *Service) analyze(ctx context.Context, req *Request) (*AnalysisResult, error) {
	start := time.Now()
	defer func() {
		metrics.GenerationStageDuration.WithLabelValues("analysis").Observe(time.Since(start).Seconds())
	}()

	parts := []*genai.Part{
		genai.NewPartFromBytes(req.RoomPhoto, req.RoomPhotoMIME),
	}
	for _, m := range req.Materials {
		parts = append(parts,
			genai.NewPartFromText(materialMarker(m.Position)),
			genai.NewPartFromBytes(m.Data, m.MIMEType),
		)
	}
	parts = append(parts, genai.NewPartFromText(buildAnalysisPrompt(req)))

	resp, err := s.model.GenerateContent(ctx, s.cfg.AnalysisModel,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{
			Temperature:     genai.Ptr[float32](analysisTemperature),
			MaxOutputTokens: analysisMaxTokens,
		})
	if err != nil {
		return nil, upstreamError("analysis", err)
	}

	return ParseAnalysis(firstText(resp), req.Style), nil
}

func (s *Service) synthesize(ctx context.Context, req *Request, analysis *AnalysisResult) (string, error) {
	start := time.Now()
	defer func() {
		metrics.GenerationStageDuration.WithLabelValues("synthesis").Observe(time.Since(start).Seconds())
	}()

	parts := []*genai.Part{
		genai.NewPartFromBytes(req.RoomPhoto, req.RoomPhotoMIME),
	}
	for _, m := range req.Materials {
		parts = append(parts,
			genai.NewPartFromText(materialMarker(m.Position)),
			genai.NewPartFromBytes(m.Data, m.MIMEType),
		)
	}
	parts = append(parts, genai.NewPartFromText(buildSynthesisPrompt(req, analysis)))

	resp, err := s.model.GenerateContent(ctx, s.cfg.SynthesisModel,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		})
	if err != nil {
		return "", upstreamError("synthesis", err)
	}

	image := firstInlineImage(resp)
	if image == "" {
		// Nothing to degrade to: without an image the pipeline failed.
		slog.Warn("synthesis response carried no inline image")
		return "", api.ErrGenerationFailed
	}
	return image, nil
}

// ParseAnalysis parses the model's text into an AnalysisResult, stripping
// code-fence markup first. The model is not guaranteed to return valid JSON:
// on any parse failure a degraded result is synthesized from the raw text so
// the pipeline stays usable.
func ParseAnalysis(raw, requestedStyle string) *AnalysisResult {
	cleaned := CleanModelJSON(raw)

	var out AnalysisResult
	if err := json.Unmarshal([]byte(cleaned), &out); err == nil && len(out.Changes) > 0 {
		if out.Style == "" {
			out.Style = requestedStyle
		}
		if out.EstimatedMaterials == nil {
			out.EstimatedMaterials = []string{}
		}
		return &out
	}

	return fallbackAnalysis(raw, requestedStyle)
}

func fallbackAnalysis(raw, requestedStyle string) *AnalysisResult {
	change := strings.TrimSpace(raw)
	// Trim on rune boundaries so a multibyte character is never split.
	if runes := []rune(change); len(runes) > fallbackChangeLength {
		change = string(runes[:fallbackChangeLength])
	}
	if change == "" {
		change = "Restyle the room as requested."
	}
	return &AnalysisResult{
		Changes:            []string{change},
		Style:              requestedStyle,
		EstimatedMaterials: []string{},
		Fallback:           true,
	}
}

// CleanModelJSON strips markdown code-fence markup around a JSON object and
// trims to the outermost balanced braces.
func CleanModelJSON(response string) string {
	response = strings.TrimSpace(response)

	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
	}
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	firstBrace := strings.Index(response, "{")
	if firstBrace == -1 {
		return response
	}

	braceCount := 0
	lastValidBrace := -1
	for i := firstBrace; i < len(response); i++ {
		switch response[i] {
		case '{':
			braceCount++
		case '}':
			braceCount--
			if braceCount == 0 {
				lastValidBrace = i
			}
		}
	}
	if lastValidBrace == -1 {
		return response
	}
	return response[firstBrace : lastValidBrace+1]
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				b.WriteString(part.Text)
			}
		}
	}
	return b.String()
}

// firstInlineImage returns the first inline image payload base64-encoded,
// or "".
func firstInlineImage(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return base64.StdEncoding.EncodeToString(part.InlineData.Data)
			}
		}
	}
	return ""
}

// upstreamError maps a model-call failure to the API taxonomy, carrying the
// upstream status when the provider reported one.
func upstreamError(stage string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		slog.Error("AI call rejected", "stage", stage, "status", apiErr.Code, "message", apiErr.Message)
		return api.NewUpstreamError(apiErr.Code, fmt.Sprintf("image %s failed (upstream status %d)", stage, apiErr.Code))
	}
	slog.Error("AI call failed", "stage", stage, "error", err)
	return api.NewUpstreamError(0, fmt.Sprintf("image %s failed", stage))
}

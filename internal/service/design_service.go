package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"design-studio-server/internal/domain"

	"cloud.google.com/go/vertexai/genai"
	"github.com/google/uuid"
)

const decoratePrompt = `You are an interior designer. Redecorate the room in the ` +
	`attached photo according to this description: %s. Keep the room layout and ` +
	`structural elements intact; change furniture, colors and decor only.`

const analysisPrompt = `Compare the original and redecorated room photos. The requested ` +
	`style was: %s. List the concrete changes that were made and suggest products ` +
	`(name plus a short search query each) a shopper could buy to achieve this look.`

// DesignService generates redecorated room images with Gemini. It is the
// metered downstream action behind the quota gate.
type DesignService struct {
	genaiClient *genai.Client
	imageModel  string
	textModel   string
	logger      domain.Logger
}

// NewDesignService creates the generation service. Returns an error when the
// GCP project is not configured; the caller decides whether to run without it.
func NewDesignService(ctx context.Context, config domain.Config, logger domain.Logger) (*DesignService, error) {
	projectID := config.GetGCPProjectID()
	location := config.GetGCPLocation()
	if projectID == "" {
		return nil, fmt.Errorf("GCP project not configured")
	}
	if location == "" {
		location = "us-central1"
	}

	client, err := genai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &DesignService{
		genaiClient: client,
		imageModel:  config.GetImageModel(),
		textModel:   config.GetTextModel(),
		logger:      logger,
	}, nil
}

// Decorate runs the two-step generation: an image model produces the
// redecorated room, then a text model describes the changes and suggests
// products.
func (s *DesignService) Decorate(ctx context.Context, userID string, req *domain.DesignRequest) (*domain.DesignResult, error) {
	imgBytes, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		return nil, &domain.ValidationError{Field: "image_base64", Message: "invalid base64 image data"}
	}
	format := imageFormat(req.MimeType)

	imageModel := s.genaiClient.GenerativeModel(s.imageModel)
	prompt := fmt.Sprintf(decoratePrompt, req.Description)

	resp, err := imageModel.GenerateContent(ctx, genai.Text(prompt), genai.ImageData(format, imgBytes))
	if err != nil {
		return nil, fmt.Errorf("image generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty response from image model")
	}

	var editedBytes []byte
	for _, part := range resp.Candidates[0].Content.Parts {
		if blob, ok := part.(genai.Blob); ok {
			editedBytes = blob.Data
			break
		}
	}
	if len(editedBytes) == 0 {
		return nil, fmt.Errorf("no image returned from image model")
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens += int(resp.UsageMetadata.TotalTokenCount)
	}

	analysis, analysisTokens := s.analyzeChanges(ctx, req.Description, format, imgBytes, editedBytes)
	tokens += analysisTokens

	result := &domain.DesignResult{
		ID:                uuid.New().String(),
		EditedImageBase64: base64.StdEncoding.EncodeToString(editedBytes),
		Analysis:          analysis,
		TokensUsed:        tokens,
	}

	s.logger.Info("Design generated", "user_id", userID, "design_id", result.ID, "model_tokens", tokens)
	return result, nil
}

// analyzeChanges is best-effort: a failed analysis never fails the design,
// since the user's quota token was already consumed.
func (s *DesignService) analyzeChanges(ctx context.Context, description, format string, original, edited []byte) (string, int) {
	textModel := s.genaiClient.GenerativeModel(s.textModel)
	prompt := fmt.Sprintf(analysisPrompt, description)

	resp, err := textModel.GenerateContent(ctx,
		genai.Text(prompt),
		genai.ImageData(format, original),
		genai.ImageData("png", edited),
	)
	if err != nil {
		s.logger.Warn("Design analysis failed", "error", err)
		return "", 0
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", 0
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return sb.String(), tokens
}

// imageFormat maps a mime type to the short format name the model API expects.
func imageFormat(mimeType string) string {
	format := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/")
	if format == "" {
		return "jpeg"
	}
	return format
}

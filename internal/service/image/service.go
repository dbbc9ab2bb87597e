package image

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/stargate-rv/relay/internal/config"
)

// Service renders target model images from text prompts.
type Service struct {
	client openai.Client
	model  string
	size   string
}

// NewService builds the image-generation client.
func NewService(cfg config.ImageConfig) *Service {
	return &Service{
		client: openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:  cfg.Model,
		size:   cfg.Size,
	}
}

// Generate produces one image for the prompt and returns the decoded
// bytes.
func (s *Service) Generate(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := s.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          openai.ImageModel(s.model),
		N:              openai.Int(1),
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
		Size:           openai.ImageGenerateParamsSize(s.size),
	})
	if err != nil {
		return nil, fmt.Errorf("image generation failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("image generation returned no data")
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode generated image: %w", err)
	}
	return data, nil
}

package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/stargate-rv/relay/internal/config"
	"github.com/stargate-rv/relay/internal/model/chat"
)

// historyLimit bounds how many prior turns are replayed into the prompt.
const historyLimit = 10

// Request carries everything needed for one generation call.
type Request struct {
	System      string
	History     []chat.Turn
	Query       string
	ImageBase64 string // optional sketch attachment, raw base64 JPEG
}

// Service wraps the chat model behind the relay's generation interface.
type Service struct {
	chatModel model.ChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewService builds the model and compiles the text-only prompt chain.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{chatModel: chatModel, chain: runnable}, nil
}

// Stream produces a lazy fragment stream for the request. Requests with an
// image attachment bypass the template chain and go to the model directly
// with a multimodal user message.
func (s *Service) Stream(ctx context.Context, req Request) (*schema.StreamReader[*schema.Message], error) {
	if req.ImageBase64 == "" {
		stream, err := s.chain.Stream(ctx, s.chainInput(req))
		if err != nil {
			return nil, fmt.Errorf("failed to stream chain output: %w", err)
		}
		return stream, nil
	}

	stream, err := s.chatModel.Stream(ctx, s.buildMessages(req))
	if err != nil {
		return nil, fmt.Errorf("failed to stream model output: %w", err)
	}
	return stream, nil
}

// Invoke runs a single-shot generation for the request.
func (s *Service) Invoke(ctx context.Context, req Request) (*schema.Message, error) {
	if req.ImageBase64 == "" {
		response, err := s.chain.Invoke(ctx, s.chainInput(req))
		if err != nil {
			return nil, fmt.Errorf("failed to run chat chain: %w", err)
		}
		return response, nil
	}

	response, err := s.chatModel.Generate(ctx, s.buildMessages(req))
	if err != nil {
		return nil, fmt.Errorf("failed to run chat model: %w", err)
	}
	return response, nil
}

func (s *Service) chainInput(req Request) map[string]any {
	return map[string]any{
		"system":  req.System,
		"history": buildHistory(req.History),
		"query":   req.Query,
	}
}

func (s *Service) buildMessages(req Request) []*schema.Message {
	messages := make([]*schema.Message, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, schema.SystemMessage(req.System))
	}
	messages = append(messages, buildHistory(req.History)...)

	user := &schema.Message{
		Role: schema.User,
		MultiContent: []schema.ChatMessagePart{
			{Type: schema.ChatMessagePartTypeText, Text: req.Query},
			{
				Type: schema.ChatMessagePartTypeImageURL,
				ImageURL: &schema.ChatMessageImageURL{
					URL: "data:image/jpeg;base64," + req.ImageBase64,
				},
			},
		},
	}
	return append(messages, user)
}

func buildHistory(turns []chat.Turn) []*schema.Message {
	if len(turns) == 0 {
		return nil
	}

	startIdx := 0
	if len(turns) > historyLimit {
		startIdx = len(turns) - historyLimit
	}

	history := make([]*schema.Message, 0, len(turns)-startIdx)
	for _, turn := range turns[startIdx:] {
		switch turn.Author {
		case chat.AuthorMonitor:
			history = append(history, schema.AssistantMessage(turn.Text, nil))
		default:
			history = append(history, schema.UserMessage(turn.Text))
		}
	}

	return history
}

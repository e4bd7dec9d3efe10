package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIAPI is the subset of *openai.Client used by OpenAIService.
type OpenAIAPI interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateImage(ctx context.Context, request openai.ImageRequest) (openai.ImageResponse, error)
	CreateSpeech(ctx context.Context, request openai.CreateSpeechRequest) (openai.RawResponse, error)
}

type OpenAIConfig struct {
	ChatModel   string
	ImageModel  string
	SpeechModel string
	Voice       string
	// MaxSpeechChars bounds one speech request; longer text is synthesized in
	// sentence-aligned chunks whose mp3 streams are concatenated.
	MaxSpeechChars int
}

// OpenAIService implements TextGenerator, ImageGenerator and SpeechSynthesizer.
type OpenAIService struct {
	client OpenAIAPI
	cfg    OpenAIConfig
}

func NewOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

func NewOpenAIService(client OpenAIAPI, cfg OpenAIConfig) *OpenAIService {
	if cfg.ChatModel == "" {
		cfg.ChatModel = openai.GPT4TurboPreview
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = openai.CreateImageModelDallE3
	}
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = "gpt-4o-mini-tts"
	}
	if cfg.Voice == "" {
		cfg.Voice = string(openai.VoiceEcho)
	}
	if cfg.MaxSpeechChars <= 0 {
		cfg.MaxSpeechChars = 4000
	}
	return &OpenAIService{client: client, cfg: cfg}
}

func (s *OpenAIService) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	messages := []openai.ChatCompletionMessage{}
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     s.cfg.ChatModel,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (s *OpenAIService) GenerateImage(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          s.cfg.ImageModel,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		Quality:        openai.CreateImageQualityStandard,
		Style:          openai.CreateImageStyleNatural,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return "", fmt.Errorf("image generation: %w", err)
	}
	if len(resp.Data) == 0 {
		return "", nil
	}
	return resp.Data[0].URL, nil
}

func (s *OpenAIService) Synthesize(ctx context.Context, text, instructions string) ([]byte, error) {
	var audio bytes.Buffer
	for i, chunk := range splitForSpeech(text, s.cfg.MaxSpeechChars) {
		resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
			Model:          openai.SpeechModel(s.cfg.SpeechModel),
			Input:          chunk,
			Voice:          openai.SpeechVoice(s.cfg.Voice),
			Instructions:   instructions,
			ResponseFormat: openai.SpeechResponseFormatMp3,
		})
		if err != nil {
			return nil, fmt.Errorf("speech synthesis chunk %d: %w", i+1, err)
		}
		_, err = io.Copy(&audio, resp)
		resp.Close()
		if err != nil {
			return nil, fmt.Errorf("read speech chunk %d: %w", i+1, err)
		}
	}
	if audio.Len() == 0 {
		return nil, fmt.Errorf("speech synthesis returned no audio")
	}
	return audio.Bytes(), nil
}

// splitForSpeech cuts text into pieces of at most max bytes, preferring
// sentence ends, then whitespace.
func splitForSpeech(text string, max int) []string {
	text = strings.TrimSpace(text)
	var chunks []string
	for len(text) > max {
		cut := lastBoundary(text[:max], []string{". ", "! ", "? ", "\n"})
		if cut <= 0 {
			cut = strings.LastIndexAny(text[:max], " \t")
		}
		if cut <= 0 {
			cut = max
			for cut > 0 && !isRuneStart(text[cut]) {
				cut--
			}
		}
		chunks = append(chunks, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

func lastBoundary(s string, seps []string) int {
	best := -1
	for _, sep := range seps {
		if i := strings.LastIndex(s, sep); i >= 0 && i+1 > best {
			best = i + 1
		}
	}
	return best
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// Package gemini adapts the generative model API for the relay: image
// analysis with a language-parameterized tour-guide prompt, ISO 639-1
// language detection, and confirmation-message translation.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// visionPromptFmt is the fixed analysis prompt. Exactly one runtime
// parameter is substituted: the resolved language tag.
const visionPromptFmt = `You are a helpful and friendly tour guide.
Analyze the user's image.
Identify the landmark in the image.
If it is a landmark, provide a brief, interesting 3-sentence description about its history or characteristics.
If it is NOT a landmark, state that clearly and describe what you see.
VERY IMPORTANT: You MUST write your entire response in the following language code: %s`

// detectPromptFmt constrains the model to a bare ISO 639-1 code, with "en"
// as the mandated answer when uncertain.
const detectPromptFmt = `Please provide only the ISO 639-1 language code for the following text (e.g., 'ko', 'ja', 'en', 'fr'). If you are unsure, respond with 'en'. Text: %q`

const translatePromptFmt = `Translate the following sentence into the language with the ISO 639-1 code '%s': %q`

// Client wraps the generative AI SDK with two models: a pro-class model for
// vision analysis and translation, and a flash-class model for detection.
type Client struct {
	client *genai.Client
	vision *genai.GenerativeModel
	detect *genai.GenerativeModel
	logger *slog.Logger
}

func New(ctx context.Context, log *slog.Logger, apiKey, visionModel, detectModel string) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	return &Client{
		client: client,
		vision: client.GenerativeModel(visionModel),
		detect: client.GenerativeModel(detectModel),
		logger: log.With(slog.String("component", "gemini")),
	}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// AnalyzeImage submits the JPEG bytes with the tour-guide prompt and returns
// the model's plain-text answer verbatim. Errors propagate to the caller as
// recoverable per-event failures; no retry here.
func (c *Client) AnalyzeImage(ctx context.Context, lang string, image []byte) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("image is required")
	}
	prompt := fmt.Sprintf(visionPromptFmt, lang)
	resp, err := c.vision.GenerateContent(ctx, genai.Text(prompt), genai.ImageData("jpeg", image))
	if err != nil {
		return "", fmt.Errorf("analyze image: %w", err)
	}
	text := firstText(resp)
	if text == "" {
		return "", fmt.Errorf("analyze image: empty model response")
	}
	return text, nil
}

// DetectLanguage asks the detection model for the ISO 639-1 code of the text.
// The answer is normalized; anything that does not look like a language code
// degrades to "en" rather than an error.
func (c *Client) DetectLanguage(ctx context.Context, text string) (string, error) {
	resp, err := c.detect.GenerateContent(ctx, genai.Text(fmt.Sprintf(detectPromptFmt, text)))
	if err != nil {
		return "", fmt.Errorf("detect language: %w", err)
	}
	code := sanitizeCode(firstText(resp))
	if code == "" {
		c.logger.Warn("unusable detection output, defaulting to en", slog.String("raw", firstText(resp)))
		code = "en"
	}
	return code, nil
}

// Translate renders the sentence in the language identified by the tag.
func (c *Client) Translate(ctx context.Context, lang, sentence string) (string, error) {
	resp, err := c.vision.GenerateContent(ctx, genai.Text(fmt.Sprintf(translatePromptFmt, lang, sentence)))
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	text := firstText(resp)
	if text == "" {
		return "", fmt.Errorf("translate: empty model response")
	}
	return text, nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		break
	}
	return strings.TrimSpace(b.String())
}

// sanitizeCode reduces model output like "Ko", "'ja'" or "ko." to a bare
// lowercase two-letter code, or empty when the output is unusable.
func sanitizeCode(raw string) string {
	code := strings.ToLower(strings.TrimSpace(raw))
	code = strings.Trim(code, "'\"`.")
	if idx := strings.IndexAny(code, " \n\t"); idx >= 0 {
		code = code[:idx]
	}
	if len(code) != 2 {
		return ""
	}
	for _, r := range code {
		if r < 'a' || r > 'z' {
			return ""
		}
	}
	return code
}

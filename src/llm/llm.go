// Package llm is the vision-language fallback client. It localizes UI
// elements the local OCR path could not find, arbitrates between ambiguous
// OCR candidates, and drives guided-navigation step requests.
package llm

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"screen-assistant/src/shape"
)

type Config struct {
	APIKey    string
	Model     string
	Providers []string
	// OnRetry, when set, is notified before each retry wait so the UI can
	// surface "server busy, retrying" feedback.
	OnRetry func(attempt int, wait time.Duration)
}

var config *Config

func Init(cfg *Config) {
	config = cfg
}

// OpenRouter API structures
type Message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

type Content struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type ProviderPreferences struct {
	Order          []string `json:"order,omitempty"`
	Quantizations  []string `json:"quantizations,omitempty"`
	AllowFallbacks *bool    `json:"allow_fallbacks,omitempty"`
}

type ChatRequest struct {
	Model       string               `json:"model"`
	Messages    []Message            `json:"messages"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens"`
	Provider    *ProviderPreferences `json:"provider,omitempty"`
}

type ChatResponse struct {
	Choices []Choice  `json:"choices"`
	Error   *APIError `json:"error,omitempty"`
}

type Choice struct {
	Message ResponseMessage `json:"message"`
}

type ResponseMessage struct {
	Content string `json:"content"`
}

type APIError struct {
	Message string      `json:"message"`
	Type    string      `json:"type"`
	Code    interface{} `json:"code"` // Can be string or number
}

const (
	openRouterURL = "https://openrouter.ai/api/v1/chat/completions"
	maxRetries    = 3
	initialDelay  = 1 * time.Second

	// TaskComplete is the literal signal a guided-navigation step request
	// returns when the task is finished.
	TaskComplete = "TASK_COMPLETE"
)

// CandidateInfo is the OCR candidate summary sent with a disambiguation
// request. Coordinates are in source-image pixel space.
type CandidateInfo struct {
	ID         int     `json:"id"`
	Text       string  `json:"text"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
}

// StepResult is one guided-navigation step: either the completion signal or
// an instruction with its annotation shapes.
type StepResult struct {
	Complete    bool
	Instruction string
	Shapes      []shape.Shape
	TotalSteps  int
}

func getProviderPreferences() *ProviderPreferences {
	if config == nil || len(config.Providers) == 0 {
		return nil
	}
	allowFallbacks := false
	return &ProviderPreferences{
		Order:          config.Providers,
		AllowFallbacks: &allowFallbacks,
	}
}

// Ping performs a minimal request to validate the API key and model at
// startup.
func Ping() error {
	text, err := query("Reply with the single word OK.", nil, 10)
	if err != nil {
		return err
	}
	if text == "" {
		return fmt.Errorf("empty ping response")
	}
	return nil
}

// Localize asks the vision model for bounding boxes of the target phrase in
// imageData. An empty overlay list is a valid "no match" answer.
func Localize(imageData []byte, target string) ([]OverlayBox, error) {
	prompt := fmt.Sprintf(
		"Locate the UI element described as %q in this screenshot.\n"+
			"Respond with ONLY a JSON object of the form\n"+
			`{"overlays":[{"type":"rect","x":0,"y":0,"width":0,"height":0,"color":"green","label":""}]}`+"\n"+
			"using image pixel coordinates. If the element is not visible, respond with "+
			`{"overlays":[]}`+". No prose, no markdown.",
		target)

	text, err := query(prompt, imageData, 500)
	if err != nil {
		return nil, err
	}
	return ParseOverlays(text)
}

// LocalizeEnlarged is the bounded retry for degenerately small boxes: the
// model is explicitly told its previous answer was too small.
func LocalizeEnlarged(imageData []byte, target string) ([]OverlayBox, error) {
	prompt := fmt.Sprintf(
		"Locate the UI element described as %q in this screenshot.\n"+
			"A previous attempt returned a box too small to see. Enlarge the bounding box "+
			"by about 15%% so it fully covers the element.\n"+
			"Respond with ONLY a JSON object of the form\n"+
			`{"overlays":[{"type":"rect","x":0,"y":0,"width":0,"height":0,"color":"green","label":""}]}`+
			" in image pixel coordinates. No prose, no markdown.",
		target)

	text, err := query(prompt, imageData, 500)
	if err != nil {
		return nil, err
	}
	return ParseOverlays(text)
}

// SelectCandidate asks the model to pick the OCR candidate best matching the
// target. A nil selection means no confident pick.
func SelectCandidate(imageData []byte, target string, candidates []CandidateInfo) (*Selection, error) {
	list, err := json.Marshal(candidates)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal candidates: %v", err)
	}

	prompt := fmt.Sprintf(
		"The user wants to highlight %q. OCR found these text candidates (image pixel coordinates):\n%s\n"+
			"Pick the candidate that best matches. Respond with ONLY a JSON object of the form\n"+
			`{"selection":{"ocr_id":1,"padding":4,"confidence":0.9}}`+"\n"+
			"or "+`{"selection":null}`+" if none is a good match. No prose, no markdown.",
		target, string(list))

	text, err := query(prompt, imageData, 200)
	if err != nil {
		return nil, err
	}
	return ParseSelection(text)
}

// NextStep requests the next guided-navigation action for the goal. The model
// answers with TASK_COMPLETE, or a one-line instruction followed by a SHAPE
// directive marking where to act.
func NextStep(imageData []byte, goal string, step int) (*StepResult, error) {
	prompt := fmt.Sprintf(
		"You are guiding a user through this task step by step: %q.\n"+
			"This screenshot shows the current screen. The user is on step %d.\n"+
			"If the task is already finished, respond with exactly %s.\n"+
			"Otherwise respond with one short instruction sentence for the next action, then on "+
			"its own line a shape directive marking where to act:\n"+
			`SHAPE[type:rect, x:<int>, y:<int>, w:<int>, h:<int>, color:green, label:"<short label>", step:%d]`+"\n"+
			"Coordinates are image pixels.",
		goal, step, TaskComplete, step)

	text, err := query(prompt, imageData, 400)
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(text)
	if strings.Contains(trimmed, TaskComplete) {
		return &StepResult{Complete: true}, nil
	}

	shapes, instruction := shape.ParseDirectives(trimmed)
	if len(shapes) == 0 {
		return nil, fmt.Errorf("step response carried no shape directive: %q", truncate(trimmed, 120))
	}
	for i := range shapes {
		shapes[i].Step = step
	}
	return &StepResult{Instruction: instruction, Shapes: shapes}, nil
}

// query sends a prompt (optionally with an attached PNG image) and returns
// the raw response text. Transport failures are retried with backoff; an
// explicit API error is returned as-is.
func query(prompt string, imageData []byte, maxTokens int) (string, error) {
	if config == nil {
		return "", fmt.Errorf("LLM client not initialized")
	}
	if config.APIKey == "" {
		return "", fmt.Errorf("API key is required")
	}
	if config.Model == "" {
		return "", fmt.Errorf("model is required")
	}

	content := []Content{{Type: "text", Text: prompt}}
	if len(imageData) > 0 {
		base64Image := base64.StdEncoding.EncodeToString(imageData)
		content = append(content, Content{
			Type:     "image_url",
			ImageURL: &ImageURL{URL: fmt.Sprintf("data:image/png;base64,%s", base64Image)},
		})
	}

	request := ChatRequest{
		Model:       config.Model,
		Messages:    []Message{{Role: "user", Content: content}},
		Temperature: 0.1,
		MaxTokens:   maxTokens,
		Provider:    getProviderPreferences(),
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(initialDelay) * (1.5 * float64(attempt)))
			if config.OnRetry != nil {
				config.OnRetry(attempt, delay)
			}
			time.Sleep(delay)
		}

		response, err := makeAPIRequest(request)
		if err != nil {
			lastErr = err
			if !retryable(err) {
				return "", err
			}
			continue
		}

		if len(response.Choices) == 0 {
			lastErr = fmt.Errorf("no choices in API response")
			continue
		}

		return response.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("failed after %d attempts: %v", maxRetries, lastErr)
}

// retryable reports whether an error is worth another attempt: transport
// failures and server-busy responses, not auth or request errors.
func retryable(err error) bool {
	msg := strings.ToUpper(err.Error())
	if strings.Contains(msg, "503") || strings.Contains(msg, "UNAVAILABLE") ||
		strings.Contains(msg, "429") || strings.Contains(msg, "TIMEOUT") {
		return true
	}
	return strings.Contains(msg, "REQUEST FAILED")
}

func makeAPIRequest(request ChatRequest) (*ChatResponse, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %v", err)
	}

	req, err := http.NewRequest("POST", openRouterURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", config.APIKey))
	req.Header.Set("X-Title", "Screen Assistant")

	client := &http.Client{Timeout: 45 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %v", err)
	}
	defer resp.Body.Close()

	var response ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %v", err)
	}

	if response.Error != nil {
		return nil, fmt.Errorf("API error: %s (type: %s, code: %v)", response.Error.Message, response.Error.Type, response.Error.Code)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	return &response, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

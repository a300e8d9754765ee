// Package tts holds the remote synthesis provider client, the audio
// resource fetcher, and the local fallback synthesizer.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/deliverit/voice-assistant/internal/config"
	"github.com/deliverit/voice-assistant/internal/speech"
)

const defaultBaseURL = "https://api.elevenlabs.io"

// ElevenLabsClient implements speech.Synthesizer against the ElevenLabs
// text-to-speech API. A successful render returns a URL to the clip.
type ElevenLabsClient struct {
	apiKey     string
	voiceID    string
	modelID    string
	baseURL    string
	httpClient *http.Client
}

// RenderRequest is the synthesis request payload.
type RenderRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id,omitempty"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

// VoiceSettings tunes the synthesized voice.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// RenderResponse is the synthesis response payload.
type RenderResponse struct {
	AudioURL string `json:"audio_url"`
}

// NewElevenLabsClient creates a new ElevenLabs synthesis client
func NewElevenLabsClient(cfg *config.Config) *ElevenLabsClient {
	return &ElevenLabsClient{
		apiKey:  cfg.ElevenLabsAPIKey,
		voiceID: cfg.ElevenLabsVoiceID,
		modelID: cfg.ElevenLabsModelID,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithBaseURL overrides the API endpoint (used in tests).
func (c *ElevenLabsClient) WithBaseURL(url string) *ElevenLabsClient {
	c.baseURL = url
	return c
}

// Render requests synthesis of text and returns the URL of the rendered
// clip. Provider errors and a missing audio URL are SynthesisErrors.
func (c *ElevenLabsClient) Render(ctx context.Context, text string) (string, error) {
	reqBody := RenderRequest{
		Text:    text,
		ModelID: c.modelID,
		VoiceSettings: VoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", &speech.SynthesisError{Provider: "elevenlabs", Message: fmt.Sprintf("marshal request: %v", err)}
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", c.baseURL, c.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", &speech.SynthesisError{Provider: "elevenlabs", Message: fmt.Sprintf("create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &speech.SynthesisError{Provider: "elevenlabs", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &speech.SynthesisError{
			Provider: "elevenlabs",
			Status:   resp.StatusCode,
			Message:  string(body),
		}
	}

	var rendered RenderResponse
	if err := json.NewDecoder(resp.Body).Decode(&rendered); err != nil {
		return "", &speech.SynthesisError{Provider: "elevenlabs", Message: fmt.Sprintf("decode response: %v", err)}
	}
	if rendered.AudioURL == "" {
		return "", &speech.SynthesisError{Provider: "elevenlabs", Message: "response missing audio_url"}
	}

	return rendered.AudioURL, nil
}

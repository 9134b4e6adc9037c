package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"cloud.google.com/go/auth/credentials"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"eli-dashboard/internal/config"
	"eli-dashboard/internal/util"
)

const (
	vertexTemperature  = 0.2
	vertexTopP         = 0.8
	cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"
)

// GenerateRequest is one JSON-mode generation.
type GenerateRequest struct {
	SystemInstruction string
	Prompt            string
	Schema            *genai.Schema
}

// GenerateResult never carries a Go error: callers surface Error as a warning.
// Output is nil when the model is disabled, failed, or returned invalid JSON.
type GenerateResult struct {
	Enabled bool
	Reason  string
	Output  json.RawMessage
	Raw     string
	Error   string
}

// VertexClient calls Gemini through the Vertex AI backend. A nil *VertexClient
// is valid and reports itself as not configured.
type VertexClient struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

func NewVertexClient(ctx context.Context, cfg *config.Config) (*VertexClient, error) {
	v := cfg.Vertex

	cc := &genai.ClientConfig{
		Backend:  genai.BackendVertexAI,
		Project:  v.ProjectID,
		Location: v.Location,
	}

	switch {
	case v.ServiceAccountJSON != "":
		creds, err := credentials.DetectDefault(&credentials.DetectOptions{
			Scopes:          []string{cloudPlatformScope},
			CredentialsJSON: []byte(v.ServiceAccountJSON),
		})
		if err != nil {
			util.Warn("failed to parse GOOGLE_SERVICE_ACCOUNT_JSON, falling back to ADC", zap.Error(err))
		} else {
			cc.Credentials = creds
		}
	case v.APIKey != "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "":
		// express mode: the key replaces project/location
		cc.Project = ""
		cc.Location = ""
		cc.APIKey = v.APIKey
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}

	util.Info("Vertex AI client initialized",
		zap.String("project", v.ProjectID),
		zap.String("location", v.Location),
		zap.String("model", v.Model),
	)
	return &VertexClient{client: client, model: v.Model, logger: util.Named("vertex")}, nil
}

// Enabled reports whether generation calls will reach the model.
func (v *VertexClient) Enabled() bool {
	return v != nil && v.client != nil
}

// GenerateJSON asks the model for a JSON document, constrained by req.Schema
// when set.
func (v *VertexClient) GenerateJSON(ctx context.Context, req GenerateRequest) GenerateResult {
	if !v.Enabled() {
		return GenerateResult{Enabled: false, Reason: "Vertex not configured"}
	}

	gc := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](vertexTemperature),
		TopP:             genai.Ptr[float32](vertexTopP),
		ResponseMIMEType: "application/json",
		ResponseSchema:   req.Schema,
	}
	if req.SystemInstruction != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}

	resp, err := v.client.Models.GenerateContent(ctx, v.model, genai.Text(req.Prompt), gc)
	if err != nil {
		v.logger.Error("generation error", zap.Error(err), zap.String("model", v.model))
		return GenerateResult{Enabled: true, Error: "Vertex generation failed"}
	}

	text := resp.Text()
	result := GenerateResult{Enabled: true, Raw: text}
	if json.Valid([]byte(text)) {
		result.Output = json.RawMessage(text)
	}
	return result
}

func (v *VertexClient) Close() {
	if v != nil {
		util.Info("Vertex AI client shutdown")
	}
}

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// bedrockInvoker is the subset of the Bedrock runtime API used here
type bedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

const defaultBedrockMaxTokens = 1024

// BedrockClient implements Provider for Amazon Bedrock
type BedrockClient struct {
	Region    string
	Model     string
	Timeout   time.Duration
	MaxTokens int

	svc bedrockInvoker
}

// NewBedrock initializes a Bedrock client using default AWS config chain
func NewBedrock(ctx context.Context, region, model string, timeout time.Duration) (*BedrockClient, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("bedrock model is required")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var cfg aws.Config
	var err error
	if strings.TrimSpace(region) != "" {
		cfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	} else {
		// Allow region to be resolved from AWS profile/env
		cfg, err = awsconfig.LoadDefaultConfig(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.Region == "" && strings.TrimSpace(region) == "" {
		return nil, fmt.Errorf("AWS region not resolved. Set llm.region, AWS_REGION or define region in the selected AWS profile")
	}
	client := bedrockruntime.NewFromConfig(cfg)
	return &BedrockClient{Region: region, Model: model, Timeout: timeout, MaxTokens: defaultBedrockMaxTokens, svc: client}, nil
}

// Name returns provider name
func (b *BedrockClient) Name() string { return "bedrock" }

// Generate sends a prompt to Bedrock and returns the generated text. Only
// the Anthropic model family is wired.
func (b *BedrockClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	if detectBedrockFamily(b.Model) != "anthropic" {
		return "", fmt.Errorf("unsupported Bedrock model family for %q", b.Model)
	}
	modelID := bedrockModelID(b.Model)

	req := bedrockAnthropicRequest{
		AnthropicVersion: bedrockAnthropicVersion,
		MaxTokens:        b.MaxTokens,
		Temperature:      defaultBedrockTemperature,
		Messages: []anthropicMessage{{
			Role:    "user",
			Content: []anthropicContentBlock{{Type: "text", Text: prompt}},
		}},
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = defaultBedrockMaxTokens
	}
	if opts.Temperature > 0 {
		req.Temperature = opts.Temperature
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}
	out, err := b.svc.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", annotateBedrockError(fmt.Errorf("bedrock invoke error: %w", err), modelID)
	}
	return decodeBedrockAnthropic(out.Body)
}

const (
	bedrockAnthropicVersion   = "bedrock-2023-05-31"
	defaultBedrockTemperature = 0.2
)

// bedrockAnthropicRequest is the Messages API body minus the model, which
// Bedrock takes from ModelId
type bedrockAnthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Temperature      float64            `json:"temperature"`
	Messages         []anthropicMessage `json:"messages"`
}

// bedrockModelID appends the :0 revision some integrations require. ARNs and
// inference profiles are passed through untouched.
func bedrockModelID(model string) string {
	lower := strings.ToLower(model)
	if strings.HasPrefix(lower, "arn:") || strings.Contains(lower, "inference-profile/") || strings.Contains(model, ":") {
		return model
	}
	return model + ":0"
}

func decodeBedrockAnthropic(body []byte) (string, error) {
	var resp anthropicResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		// older text models answer with outputText
		var alt struct {
			OutputText string `json:"outputText"`
		}
		if err2 := json.Unmarshal(body, &alt); err2 == nil && strings.TrimSpace(alt.OutputText) != "" {
			return strings.TrimSpace(alt.OutputText), nil
		}
		return "", fmt.Errorf("failed to decode Anthropic response: %w", err)
	}
	for _, c := range resp.Content {
		if c.Type == "text" && strings.TrimSpace(c.Text) != "" {
			return strings.TrimSpace(c.Text), nil
		}
	}
	return "", fmt.Errorf("empty response from Bedrock Anthropic model")
}

func detectBedrockFamily(model string) string {
	m := strings.ToLower(strings.TrimSpace(model))
	switch {
	case strings.HasPrefix(m, "anthropic.") || strings.Contains(m, "anthropic."):
		return "anthropic"
	case strings.HasPrefix(m, "meta.") || strings.Contains(m, "meta."):
		return "meta"
	case strings.HasPrefix(m, "amazon.titan") || strings.Contains(m, "amazon.titan"):
		return "titan"
	default:
		return ""
	}
}

// annotateBedrockError adds common hints for Bedrock model ID issues
func annotateBedrockError(err error, modelID string) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "validationexception") && strings.Contains(msg, "throughput isn't supported") {
		return fmt.Errorf("%v\nHint: This model may require an inference profile. Try setting llm.model to the profile ID/ARN for %q, or ensure the ID includes region/vendor and revision (e.g., us.anthropic...:0)", err, modelID)
	}
	if strings.Contains(msg, "provided model identifier is invalid") {
		return fmt.Errorf("%v\nHint: Verify the exact Bedrock ModelId or use the inference profile ID. Regional prefixes (e.g., us.) and revision suffix (:0) may be required", err)
	}
	return err
}

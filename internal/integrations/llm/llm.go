// Package llm turns a finished scan into a facilitator-facing narrative
// using either the Anthropic or OpenAI chat APIs.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"calibot/internal/bias"
	"calibot/internal/config"
	"calibot/internal/httpx"
)

type Usage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

func (u Usage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationInputTokens += other.CacheCreationInputTokens
	u.CacheReadInputTokens += other.CacheReadInputTokens
}

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"
const defaultOpenAIModel = "gpt-4o-mini"

const maxDeviationLines = 3

// GenerateNarrative asks the configured provider for a plain-language
// summary of the scan. The returned text is markdown without fences.
func GenerateNarrative(cfg config.Config, orgName string, rep bias.ScanReport) (string, Usage, error) {
	systemPrompt, userPrompt := buildNarrativePrompt(orgName, rep)

	var responseText string
	var usage Usage
	var err error

	switch cfg.LLMProvider {
	case "openai":
		model := cfg.LLMModel
		if model == "" {
			model = defaultOpenAIModel
		}
		log.Printf("llm narrative provider=openai model=%s axis=%s sample=%d", model, rep.Axis, rep.SampleSize)
		responseText, usage, err = callOpenAI(cfg.OpenAIAPIKey, model, systemPrompt, userPrompt)
	default:
		model := cfg.LLMModel
		if model == "" {
			model = defaultAnthropicModel
		}
		log.Printf("llm narrative provider=anthropic model=%s axis=%s sample=%d", model, rep.Axis, rep.SampleSize)
		responseText, usage, err = callAnthropic(cfg.AnthropicAPIKey, model, systemPrompt, userPrompt)
	}
	if err != nil {
		return "", usage, err
	}

	narrative := stripResponseFences(responseText)
	if narrative == "" {
		return "", usage, fmt.Errorf("empty narrative from %s", cfg.LLMProvider)
	}
	return narrative, usage, nil
}

func buildNarrativePrompt(orgName string, rep bias.ScanReport) (string, string) {
	systemPrompt := `You write a short narrative summary of a talent calibration scan for HR facilitators.

The scan compares High/Medium/Low rating distributions across employee groupings (location, function, job level, tenure, manager teams) and flags statistically unusual patterns.

Write in plain language for a non-statistical audience:
- open with a one-sentence overall read of the scan
- describe each flagged pattern and what it means in practice, using the numbers given
- suggest two or three questions facilitators should raise in the calibration session
- close with a caution that a flag shows statistical association, not proof of bias, and that small groups can flag by chance

Keep it under 400 words. Respond with plain markdown, no code fences.`

	var facts strings.Builder
	facts.WriteString(fmt.Sprintf("Organization: %s\n", orgName))
	facts.WriteString(fmt.Sprintf("Rating axis: %s\n", rep.Axis))
	facts.WriteString(fmt.Sprintf("Employees analyzed: %d\n", rep.SampleSize))
	facts.WriteString(fmt.Sprintf("Quality score: %d/100 (%d green, %d yellow, %d red)\n",
		rep.QualityScore, rep.AnomalyCount.Green, rep.AnomalyCount.Yellow, rep.AnomalyCount.Red))

	for _, a := range bias.Analyses() {
		out, ok := rep.Results[a.Dimension]
		if !ok {
			continue
		}
		facts.WriteString(fmt.Sprintf("\n%s [%s]: %s\n", a.Title, out.Status(), out.Interpretation()))
		if out.Status() == bias.StatusGreen {
			continue
		}
		if out.Result != nil {
			for i, dev := range out.Result.Deviations {
				if i >= maxDeviationLines {
					break
				}
				facts.WriteString(fmt.Sprintf("  - %s: %d employees, %.1f%% High vs %.1f%% expected (z=%.2f)\n",
					dev.Category, dev.CategorySize, dev.ObservedHighPct, dev.ExpectedHighPct, dev.ZScore))
			}
		}
		if out.Managers != nil {
			for _, f := range out.Managers.Findings {
				if !f.IsSignificant {
					continue
				}
				facts.WriteString(fmt.Sprintf("  - %s, team of %d: %.0f%% High, %+.0f%% vs baseline (p=%.3f)\n",
					f.ManagerName, f.TeamSize, f.HighPct, f.HighDeviation, f.PValue))
			}
		}
	}

	userPrompt := "Summarize this calibration scan:\n\n" + facts.String()
	return systemPrompt, userPrompt
}

func stripResponseFences(responseText string) string {
	responseText = strings.TrimSpace(responseText)
	responseText = strings.TrimPrefix(responseText, "```markdown")
	responseText = strings.TrimPrefix(responseText, "```md")
	responseText = strings.TrimPrefix(responseText, "```")
	responseText = strings.TrimSuffix(responseText, "```")
	return strings.TrimSpace(responseText)
}

// --- Anthropic ---

func callAnthropic(apiKey, model, systemPrompt, userPrompt string) (string, Usage, error) {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpx.ExternalHTTPClient()),
	)

	message, err := client.Messages.New(context.Background(), anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 2048,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		log.Printf("llm anthropic error: %v", err)
		return "", Usage{}, fmt.Errorf("Anthropic API error: %w", err)
	}
	usage := Usage{
		InputTokens:              message.Usage.InputTokens,
		OutputTokens:             message.Usage.OutputTokens,
		CacheCreationInputTokens: message.Usage.CacheCreationInputTokens,
		CacheReadInputTokens:     message.Usage.CacheReadInputTokens,
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			log.Printf("llm anthropic response size=%d tokens_in=%d tokens_out=%d cache_create=%d cache_read=%d", len(block.Text), usage.InputTokens, usage.OutputTokens, usage.CacheCreationInputTokens, usage.CacheReadInputTokens)
			return block.Text, usage, nil
		}
	}
	return "", usage, fmt.Errorf("no text content in Anthropic response")
}

// --- OpenAI ---

type openAIRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func callOpenAI(apiKey, model, systemPrompt, userPrompt string) (string, Usage, error) {
	reqBody := openAIRequest{
		Model: model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", Usage{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequest("POST", "https://api.openai.com/v1/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", Usage{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := httpx.ExternalHTTPClient().Do(req)
	if err != nil {
		log.Printf("llm openai error: %v", err)
		return "", Usage{}, fmt.Errorf("OpenAI API error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", Usage{}, fmt.Errorf("reading response: %w", err)
	}

	var openAIResp openAIResponse
	if err := json.Unmarshal(respBody, &openAIResp); err != nil {
		return "", Usage{}, fmt.Errorf("parsing OpenAI response: %w", err)
	}

	if openAIResp.Error != nil {
		log.Printf("llm openai api error: %s", openAIResp.Error.Message)
		return "", Usage{}, fmt.Errorf("OpenAI API error: %s", openAIResp.Error.Message)
	}

	if len(openAIResp.Choices) == 0 {
		return "", Usage{}, fmt.Errorf("no choices in OpenAI response")
	}
	usage := Usage{}
	if openAIResp.Usage != nil {
		usage.InputTokens = openAIResp.Usage.PromptTokens
		usage.OutputTokens = openAIResp.Usage.CompletionTokens
	}

	log.Printf("llm openai response size=%d tokens_in=%d tokens_out=%d", len(openAIResp.Choices[0].Message.Content), usage.InputTokens, usage.OutputTokens)
	return openAIResp.Choices[0].Message.Content, usage, nil
}

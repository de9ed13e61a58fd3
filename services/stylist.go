package services

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"
)

// LLMModelName is the GenAI model to use for a call.
type LLMModelName int32

const (
	Pro25 LLMModelName = iota
	Flash25
	FlashLite25
	Flash20
)

func (t LLMModelName) String() string {
	switch t {
	case Pro25:
		return "gemini-2.5-pro"
	case Flash25:
		return "gemini-2.5-flash"
	case FlashLite25:
		return "gemini-2.5-flash-lite-preview-06-17"
	case Flash20:
		return "gemini-2.0-flash"
	default:
		return "gemini-2.0-flash"
	}
}

func floatPointer(f float32) *float32 {
	return &f
}

type LLMResponse struct {
	Response           string `json:"response"`
	InputTokenCount    int32  `json:"input_token_count"`
	Thoughts           string `json:"thoughts"`
	ThoughtsTokenCount int32  `json:"thoughts_token_count"`
	OutputTokenCount   int32  `json:"output_token_count"`
	TotalTokenCount    int32  `json:"total_token_count"`
	IsTest             bool   `json:"is_test"`
}

// LLMStylistProvider is injected into the pipeline so tests and offline mode
// can substitute the real Gemini client.
type LLMStylistProvider interface {
	GenerateOutfitFeedback(prompt string, imagePath string, modelName LLMModelName) (*LLMResponse, error)
	AnswerFollowUp(prompt string, modelName LLMModelName) (*LLMResponse, error)
}

type ResponseWithThoughts struct {
	Thoughts string `json:"thoughts"`
	Text     string `json:"text"`
}

func tryUploadGoogleStorage(ctx context.Context, client *genai.Client, filePath string, newName *string) (*genai.File, error) {
	var genFile *genai.File
	var err error
	maxUploadTimes := 3
	for i := range maxUploadTimes {
		config := &genai.UploadFileConfig{}
		if newName != nil {
			config = &genai.UploadFileConfig{
				Name: *newName,
			}
		}

		genFile, err = client.Files.UploadFromPath(ctx, filePath, config)
		if err == nil {
			fmt.Println("File uploaded successfully:", filePath, "Attempt:", i+1)
			return genFile, nil
		}
		fmt.Printf("Error uploading file %s, attempt %d: %v\n", filePath, i+1, err)
	}
	return nil, fmt.Errorf("failed to upload file to google storage after %d attempts: %s", maxUploadTimes, filePath)
}

func GetFirstCandidateTextWithThoughts(result *genai.GenerateContentResponse) (*ResponseWithThoughts, error) {
	var thinkingContent string
	for _, c := range result.Candidates {
		fmt.Println("Finish reason: ", c.FinishReason, " Finish message: ", c.FinishMessage)

		if len(c.SafetyRatings) > 0 {
			fmt.Println("[Safety] Safety ratings present:", len(c.SafetyRatings))
			for _, rating := range c.SafetyRatings {
				fmt.Println("[Safety] rating:", rating.Category, "Score:", rating.Probability, " Blocked:", rating.Blocked)
				if rating.Blocked {
					return nil, fmt.Errorf("content violation: couldn't analyze the outfit, because it contains %s", rating.Category)
				}
			}
		}
		for _, part := range c.Content.Parts {
			if part.Thought && part.Text != "" {
				thinkingContent = part.Text
				continue
			}
		}
	}
	return &ResponseWithThoughts{
		Thoughts: thinkingContent,
		Text:     result.Text(),
	}, nil
}

// feedbackResponseSchema declares the exact JSON shape the model must return
// for an outfit critique. The worker still re-validates the parsed payload,
// the schema just makes well-formed output far more likely.
func feedbackResponseSchema() *genai.Schema {
	pointItem := &genai.Schema{
		Type: "object",
		Properties: map[string]*genai.Schema{
			"point":  {Type: "string"},
			"detail": {Type: "string"},
		},
		Required: []string{"point", "detail"},
	}
	scoreSchema := &genai.Schema{Type: "number"}
	stringList := &genai.Schema{Type: "array", Items: &genai.Schema{Type: "string"}}
	return &genai.Schema{
		Type: "object",
		Properties: map[string]*genai.Schema{
			"overallScore": scoreSchema,
			"summary":      {Type: "string"},
			"whatsWorking": {Type: "array", Items: pointItem},
			"consider":     {Type: "array", Items: pointItem},
			"quickFixes": {Type: "array", Items: &genai.Schema{
				Type: "object",
				Properties: map[string]*genai.Schema{
					"suggestion": {Type: "string"},
					"impact":     {Type: "string"},
				},
				Required: []string{"suggestion", "impact"},
			}},
			"occasionMatch": {
				Type: "object",
				Properties: map[string]*genai.Schema{
					"score": scoreSchema,
					"notes": {Type: "string"},
				},
				Required: []string{"score", "notes"},
			},
			"styleDNA": {
				Type: "object",
				Properties: map[string]*genai.Schema{
					"dominantColors":  stringList,
					"colorHarmony":    {Type: "string"},
					"colorCount":      {Type: "integer"},
					"formalityLevel":  {Type: "integer"},
					"styleArchetypes": stringList,
					"silhouetteType":  {Type: "string"},
					"garments":        stringList,
					"patterns":        stringList,
					"textures":        stringList,
					"colorScore":      scoreSchema,
					"proportionScore": scoreSchema,
					"fitScore":        scoreSchema,
					"coherenceScore":  scoreSchema,
				},
			},
		},
		Required: []string{"overallScore", "summary", "whatsWorking", "consider", "occasionMatch", "styleDNA"},
	}
}

// MockLLMStylist serves a fixed rich payload without touching the network.
// Selected with STYLIST_OFFLINE_MODE=true for local development so no API
// quota is consumed.
type MockLLMStylist struct{}

func (MockLLMStylist) GenerateOutfitFeedback(prompt string, imagePath string, modelName LLMModelName) (*LLMResponse, error) {
	return &LLMResponse{
		Response: `{
	"overallScore": 7.8,
	"summary": "A relaxed weekend look with a cohesive palette.",
	"whatsWorking": [
		{"point": "Palette", "detail": "The olive jacket and white tee sit comfortably together."},
		{"point": "Fit", "detail": "The straight-leg denim fits cleanly without bunching."}
	],
	"consider": [
		{"point": "Layering", "detail": "A light mid-layer would add depth on cooler days."},
		{"point": "Footwear", "detail": "A suede boot would dress this up a notch."}
	],
	"quickFixes": [
		{"suggestion": "Roll the jacket sleeves", "impact": "Adds a casual intentional touch"}
	],
	"occasionMatch": {"score": 8, "notes": "Great for errands or a casual lunch."},
	"styleDNA": {
		"dominantColors": ["olive", "white", "indigo"],
		"colorHarmony": "analogous",
		"colorCount": 3,
		"formalityLevel": 2,
		"styleArchetypes": ["casual", "workwear"],
		"silhouetteType": "relaxed",
		"garments": ["jacket", "t-shirt", "jeans"],
		"patterns": [],
		"textures": ["cotton", "denim"],
		"colorScore": 8,
		"proportionScore": 7.5,
		"fitScore": 8,
		"coherenceScore": 7.8
	}
}`,
		IsTest: true,
	}, nil
}

func (MockLLMStylist) AnswerFollowUp(prompt string, modelName LLMModelName) (*LLMResponse, error) {
	return &LLMResponse{
		Response: "Try swapping the sneakers for chelsea boots, the darker footwear grounds the palette and works for the same occasions.",
		IsTest:   true,
	}, nil
}

// GoogleLLMStylist is the production Gemini implementation.
type GoogleLLMStylist struct{}

func (GoogleLLMStylist) GenerateOutfitFeedback(prompt string, imagePath string, modelName LLMModelName) (*LLMResponse, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  os.Getenv("GOOGLE_API_KEY"),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating genai client: %v", err)
	}

	genFile, err := tryUploadGoogleStorage(ctx, client, imagePath, nil)
	if err != nil {
		fmt.Println("Error uploading outfit photo:", imagePath, err)
		return nil, fmt.Errorf("error uploading file %s: %v", imagePath, err)
	}

	parts := []*genai.Part{
		{
			FileData: &genai.FileData{
				FileURI:  genFile.URI,
				MIMEType: genFile.MIMEType,
			},
		},
		{Text: prompt},
	}

	result, err := client.Models.GenerateContent(ctx, modelName.String(), []*genai.Content{{Parts: parts}}, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   feedbackResponseSchema(),
		CandidateCount:   1,
		MaxOutputTokens:  20000,
		Temperature:      floatPointer(0.8),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{
				{Text: `You are an honest, encouraging personal stylist reviewing one outfit photo. Score on a 1-10 scale where 5-6 is an average everyday outfit, reserve 9-10 for truly exceptional styling. Judge only what is visible: colors, proportions, fit, coherence and occasion match. Be specific about garments you can actually see. Return the response strictly in the requested JSON shape, never wrap it in markdown.`},
			},
		},
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: true,
		},
	})

	if err != nil {
		fmt.Println("Error in GenerateContent:", err)
		return nil, fmt.Errorf("%v", err)
	}

	var inputTokenCount int32
	var thoughtsTokenCount int32
	var outputTokenCount int32
	var totalTokenCount int32
	if result.UsageMetadata != nil {
		inputTokenCount = result.UsageMetadata.PromptTokenCount
		thoughtsTokenCount = result.UsageMetadata.ThoughtsTokenCount
		outputTokenCount = result.UsageMetadata.CandidatesTokenCount
		totalTokenCount = result.UsageMetadata.TotalTokenCount
		fmt.Println("Input token count:", inputTokenCount)
		fmt.Println("Output token count:", outputTokenCount)
		fmt.Println("Thoughts token count:", thoughtsTokenCount)
		fmt.Println("Total token count:", totalTokenCount)
	} else {
		fmt.Println("UsageMetadata is nil!")
	}

	if result.PromptFeedback != nil {
		fmt.Println(result.PromptFeedback.BlockReason)
		fmt.Println(result.PromptFeedback.BlockReasonMessage)
		fmt.Println(result.PromptFeedback.SafetyRatings)
		return nil, fmt.Errorf("content violation: %s %s ", imagePath, result.PromptFeedback.BlockReasonMessage)
	}

	llmResponseText, err := GetFirstCandidateTextWithThoughts(result)
	if err != nil {
		fmt.Println("Error getting first candidate text: ", err)
		fmt.Println(result.Candidates)
		return nil, fmt.Errorf("error getting first candidate text: %v", err)
	}

	return &LLMResponse{
		Response:           llmResponseText.Text,
		Thoughts:           llmResponseText.Thoughts,
		InputTokenCount:    inputTokenCount,
		ThoughtsTokenCount: thoughtsTokenCount,
		OutputTokenCount:   outputTokenCount,
		TotalTokenCount:    totalTokenCount,
		IsTest:             false,
	}, nil
}

func (GoogleLLMStylist) AnswerFollowUp(prompt string, modelName LLMModelName) (*LLMResponse, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  os.Getenv("GOOGLE_API_KEY"),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating genai client: %v", err)
	}

	parts := []*genai.Part{{Text: prompt}}

	result, err := client.Models.GenerateContent(ctx, modelName.String(), []*genai.Content{{Parts: parts}}, &genai.GenerateContentConfig{
		CandidateCount:  1,
		MaxOutputTokens: 2000,
		Temperature:     floatPointer(0.8),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{
				{Text: `You are the same stylist who already reviewed this outfit. Answer the follow-up question in 2-4 sentences, plain text. Do not name specific commercial brands unless the user explicitly asks for brands.`},
			},
		},
	})
	if err != nil {
		fmt.Println("Error in GenerateContent:", err)
		return nil, fmt.Errorf("%v", err)
	}

	var inputTokenCount int32
	var outputTokenCount int32
	var totalTokenCount int32
	if result.UsageMetadata != nil {
		inputTokenCount = result.UsageMetadata.PromptTokenCount
		outputTokenCount = result.UsageMetadata.CandidatesTokenCount
		totalTokenCount = result.UsageMetadata.TotalTokenCount
	}

	if result.PromptFeedback != nil {
		return nil, fmt.Errorf("content violation: %s", result.PromptFeedback.BlockReasonMessage)
	}

	llmResponseText, err := GetFirstCandidateTextWithThoughts(result)
	if err != nil {
		return nil, fmt.Errorf("error getting first candidate text: %v", err)
	}

	return &LLMResponse{
		Response:         llmResponseText.Text,
		Thoughts:         llmResponseText.Thoughts,
		InputTokenCount:  inputTokenCount,
		OutputTokenCount: outputTokenCount,
		TotalTokenCount:  totalTokenCount,
	}, nil
}

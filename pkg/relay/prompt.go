package relay

import (
	"fmt"

	"github.com/jxucoder/mockmate/pkg/llm"
	"github.com/jxucoder/mockmate/pkg/model"
)

// SeedText is the synthetic first user turn sent when an interview starts
// with an empty history.
const SeedText = "Start the interview"

// TranscribeInstruction accompanies the audio in a transcription request.
const TranscribeInstruction = "Transcribe this audio to text. Only return the transcribed text, nothing else."

// DefaultAudioMIMEType is assumed when the caller does not name one.
const DefaultAudioMIMEType = "audio/webm"

// SystemInstruction renders the interviewer persona for role.
func SystemInstruction(role string) string {
	return fmt.Sprintf(interviewerSystemPrompt, role)
}

// InterviewGeneration holds the sampling parameters for interview turns.
func InterviewGeneration() llm.GenerationConfig {
	return llm.GenerationConfig{
		Temperature:     llm.Float32(0.7),
		TopK:            llm.Float32(40),
		TopP:            llm.Float32(0.95),
		MaxOutputTokens: 1024,
	}
}

// TranscribeGeneration holds the sampling parameters for transcription.
func TranscribeGeneration() llm.GenerationConfig {
	return llm.GenerationConfig{
		Temperature:     llm.Float32(0.1),
		MaxOutputTokens: 1024,
	}
}

// SafetySettings blocks medium-and-above content in every harm category.
func SafetySettings() []llm.SafetySetting {
	categories := []string{
		"HARM_CATEGORY_HARASSMENT",
		"HARM_CATEGORY_HATE_SPEECH",
		"HARM_CATEGORY_SEXUALLY_EXPLICIT",
		"HARM_CATEGORY_DANGEROUS_CONTENT",
	}
	settings := make([]llm.SafetySetting, 0, len(categories))
	for _, c := range categories {
		settings = append(settings, llm.SafetySetting{Category: c, Threshold: "BLOCK_MEDIUM_AND_ABOVE"})
	}
	return settings
}

// BuildInterviewRequest shapes the provider request for one interview turn.
// A non-empty history is forwarded unchanged; an empty one is replaced by the
// seed turn.
func BuildInterviewRequest(modelName string, history []model.Turn, role string) *llm.Request {
	contents := model.CloneTurns(history)
	if len(contents) == 0 {
		contents = []model.Turn{model.UserText(SeedText)}
	}
	return &llm.Request{
		Model:             modelName,
		Contents:          contents,
		SystemInstruction: SystemInstruction(role),
		Generation:        InterviewGeneration(),
		SafetySettings:    SafetySettings(),
	}
}

// BuildTranscribeRequest shapes a single-turn transcription request.
func BuildTranscribeRequest(modelName string, audio []byte, mimeType string) *llm.Request {
	return &llm.Request{
		Model: modelName,
		Contents: []model.Turn{{
			Role: model.SpeakerUser,
			Parts: []model.Part{
				model.AudioPart(mimeType, audio),
				model.TextPart(TranscribeInstruction),
			},
		}},
		Generation: TranscribeGeneration(),
	}
}

// --- System Prompts ---

const interviewerSystemPrompt = `You are an expert AI interviewer. Your current task is to conduct a mock job interview for the role of a %s.

Follow these rules strictly:
1. Start by asking a single, concise introductory question.
2. Base the difficulty and content on common industry standards for this role.
3. After the user provides an answer, you MUST provide concise, constructive
   feedback on their previous answer AND then immediately ask the next logical
   follow-up question to drive the conversation forward.
4. Always format your response with a "Feedback:" section followed by a
   "Next Question:" section.`

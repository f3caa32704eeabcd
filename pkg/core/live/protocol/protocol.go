// Package protocol defines the JSON frames exchanged over the live
// bidirectional websocket. The endpoint uses camelCase field names; every
// frame is a single-key envelope naming the message kind.
package protocol

import "encoding/json"

// ClientMessage is the envelope for client-to-server frames. Exactly one
// field is set per frame.
type ClientMessage struct {
	Setup         *Setup         `json:"setup,omitempty"`
	RealtimeInput *RealtimeInput `json:"realtimeInput,omitempty"`
	ToolResponse  *ToolResponse  `json:"toolResponse,omitempty"`
}

// Setup is the first frame on a live session. It fixes the model, the
// instruction context and the tool surface for the whole session.
type Setup struct {
	Model                    string              `json:"model"`
	GenerationConfig         *GenerationConfig   `json:"generationConfig,omitempty"`
	SystemInstruction        *Content            `json:"systemInstruction,omitempty"`
	Tools                    []Tool              `json:"tools,omitempty"`
	InputAudioTranscription  *AudioTranscription `json:"inputAudioTranscription,omitempty"`
	OutputAudioTranscription *AudioTranscription `json:"outputAudioTranscription,omitempty"`
}

// AudioTranscription enables live transcription for one direction.
// The endpoint takes an empty object as "on".
type AudioTranscription struct{}

// GenerationConfig configures response generation for the session.
type GenerationConfig struct {
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *SpeechConfig `json:"speechConfig,omitempty"`
}

// SpeechConfig selects the synthesis voice.
type SpeechConfig struct {
	VoiceConfig *VoiceConfig `json:"voiceConfig,omitempty"`
}

// VoiceConfig names a prebuilt voice.
type VoiceConfig struct {
	PrebuiltVoiceConfig *PrebuiltVoiceConfig `json:"prebuiltVoiceConfig,omitempty"`
}

// PrebuiltVoiceConfig carries the prebuilt voice name.
type PrebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName,omitempty"`
}

// RealtimeInput carries captured audio toward the model.
type RealtimeInput struct {
	MediaChunks []Blob `json:"mediaChunks,omitempty"`
}

// Blob is inline binary data, base64 encoded on the wire.
type Blob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Content is a turn fragment: a role plus ordered parts.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts,omitempty"`
}

// Part is a single piece of content.
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

// Tool declares callable functions to the model.
type Tool struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations,omitempty"`
}

// FunctionDeclaration describes one callable function.
type FunctionDeclaration struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ToolResponse returns function results to the model.
type ToolResponse struct {
	FunctionResponses []FunctionResponse `json:"functionResponses,omitempty"`
}

// FunctionResponse is the result of one function call.
type FunctionResponse struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// ServerMessage is the envelope for server-to-client frames. Exactly one
// field is set per frame.
type ServerMessage struct {
	SetupComplete *SetupComplete `json:"setupComplete,omitempty"`
	ServerContent *ServerContent `json:"serverContent,omitempty"`
	ToolCall      *ToolCall      `json:"toolCall,omitempty"`
	GoAway        *GoAway        `json:"goAway,omitempty"`
}

// SetupComplete acknowledges the setup frame; the session is open once it
// arrives.
type SetupComplete struct{}

// ServerContent carries model output: inline audio parts, incremental
// transcriptions for both directions, and the turn boundary signal.
type ServerContent struct {
	ModelTurn           *Content       `json:"modelTurn,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
	Interrupted         bool           `json:"interrupted,omitempty"`
	InputTranscription  *Transcription `json:"inputTranscription,omitempty"`
	OutputTranscription *Transcription `json:"outputTranscription,omitempty"`
}

// Transcription is one incremental transcription fragment.
type Transcription struct {
	Text string `json:"text,omitempty"`
}

// ToolCall asks the client to execute functions and reply with a
// ToolResponse.
type ToolCall struct {
	FunctionCalls []FunctionCall `json:"functionCalls,omitempty"`
}

// FunctionCall is one requested invocation.
type FunctionCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// GoAway warns that the server will close the connection soon.
type GoAway struct {
	TimeLeft string `json:"timeLeft,omitempty"`
}

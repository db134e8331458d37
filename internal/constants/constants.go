// Package constants provides shared constants used across the application
// to avoid circular dependencies between packages.
package constants

import "time"

// Timeout constants used across the application
const (
	// DefaultAPITimeout is the timeout for model API requests (streaming can take a while)
	DefaultAPITimeout = 120 * time.Second
)

// Application defaults
const (
	AppName              = "chatybot"
	DefaultSystemMessage = "You are a helpful assistant."
	DefaultBaseURL       = "https://api.openai.com/v1"
	DefaultTemperature   = 0.7
	DefaultPromptPrefix  = "chat --> "
)

// File buffer limits
const (
	// MaxFileBuffer is the number of bytes /file and /filebankN keep from a file
	MaxFileBuffer = 4096
	// FilePreviewLength is the number of characters /showfile prints without "all"
	FilePreviewLength = 100
	// FileBankCount is the number of auxiliary file banks
	FileBankCount = 5
)

// Parameter ranges enforced by /temp and /maxtokens
const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
	MinMaxTokens   = 1
)

// CodeOnlyInstruction is prepended to the prompt when code-only mode is on
const CodeOnlyInstruction = "Do not explain or describe the code - generate the code requested only. "

// MultilineTerminator ends a multiline chat message
const MultilineTerminator = ";;"

// TranscriptPrefix is the file name prefix for session transcripts
const TranscriptPrefix = "chatybot.log."

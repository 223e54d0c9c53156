// Package whisper transcribes uploaded audio with the OpenAI Whisper API.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Recognizer handles Whisper API transcription requests.
type Recognizer struct {
	client   openai.Client
	model    openai.AudioModel
	language string
}

// New creates a recognizer. Extra request options (base URL, HTTP client)
// are passed straight to the OpenAI client.
func New(apiKey, model, language string, opts ...option.RequestOption) (*Recognizer, error) {
	if apiKey == "" {
		return nil, errors.New("API key required: set OPENAI_API_KEY or run 'scribe config set-key openai'")
	}

	audioModel := openai.AudioModelWhisper1
	if model != "" {
		audioModel = openai.AudioModel(model)
	}

	return &Recognizer{
		client:   openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...),
		model:    audioModel,
		language: language,
	}, nil
}

// Recognize transcribes audio read from r. filename and mediaType are
// forwarded so the API can tell the container format.
func (rc *Recognizer) Recognize(ctx context.Context, r io.Reader, filename, mediaType string) (string, error) {
	params := openai.AudioTranscriptionNewParams{
		File:  namedReader{Reader: r, filename: filename, contentType: mediaType},
		Model: rc.model,
	}

	if rc.language != "" {
		params.Language = openai.String(rc.language)
	}

	resp, err := rc.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to create transcription via Whisper API: %w", err)
	}

	return resp.Text, nil
}

// namedReader carries the upload's filename and content type into the
// multipart request the OpenAI client builds.
type namedReader struct {
	io.Reader
	filename    string
	contentType string
}

func (n namedReader) Filename() string {
	return n.filename
}

func (n namedReader) ContentType() string {
	if n.contentType == "" {
		return "application/octet-stream"
	}

	return n.contentType
}

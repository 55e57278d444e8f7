package stt

import (
	"context"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	apperrors "github.com/meetpilot/meetpilot/internal/errors"
)

// GoogleEngine transcribes utterances with Google Cloud Speech-to-Text
// synchronous recognition. Utterances are short (capped at 30s), well within
// the synchronous API limit.
type GoogleEngine struct {
	client     *speech.Client
	sampleRate int
}

// NewGoogleEngine creates a Cloud Speech backend. credsFile may be empty, in
// which case application default credentials apply.
func NewGoogleEngine(ctx context.Context, credsFile string, sampleRate int) (*GoogleEngine, error) {
	var opts []option.ClientOption
	if credsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credsFile))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.EngineUnavailable, "cloud speech client")
	}
	return &GoogleEngine{client: client, sampleRate: sampleRate}, nil
}

// Transcribe implements Engine.
func (e *GoogleEngine) Transcribe(ctx context.Context, samples []float32, language string) (Result, error) {
	resp, err := e.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz: int32(e.sampleRate),
			LanguageCode:    language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: pcm16Bytes(samples)},
		},
	})
	if err != nil {
		return Result{}, apperrors.Wrap(err, apperrors.EngineUnavailable, "cloud speech recognize")
	}

	var parts []string
	detected := language
	for _, res := range resp.GetResults() {
		alts := res.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if t := strings.TrimSpace(alts[0].GetTranscript()); t != "" {
			parts = append(parts, t)
		}
		if lc := res.GetLanguageCode(); lc != "" {
			detected = lc
		}
	}

	text := strings.Join(parts, " ")
	if text == "" {
		return Result{}, apperrors.New(apperrors.EmptyResult, "engine returned no text")
	}
	return Result{Text: text, Language: detected}, nil
}

// Close releases the underlying gRPC connection.
func (e *GoogleEngine) Close() error {
	return e.client.Close()
}

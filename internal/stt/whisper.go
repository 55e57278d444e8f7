package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/meetpilot/meetpilot/internal/errors"
)

// WhisperEngine talks to a whisper-server /inference endpoint over HTTP,
// uploading each utterance as a WAV file.
type WhisperEngine struct {
	url        string
	sampleRate int
	httpClient *http.Client
}

// NewWhisperEngine creates a whisper-server backend. The timeout bounds a
// single inference call.
func NewWhisperEngine(url string, sampleRate int, timeout time.Duration) *WhisperEngine {
	return &WhisperEngine{
		url:        url,
		sampleRate: sampleRate,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type whisperResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Transcribe implements Engine.
func (e *WhisperEngine) Transcribe(ctx context.Context, samples []float32, language string) (Result, error) {
	wavData, err := EncodeWAV(samples, e.sampleRate)
	if err != nil {
		return Result{}, apperrors.Wrap(err, apperrors.EngineUnavailable, "wav encode failed")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "utterance.wav")
	if err != nil {
		return Result{}, apperrors.Wrap(err, apperrors.EngineUnavailable, "build upload")
	}
	if _, err := fw.Write(wavData); err != nil {
		return Result{}, apperrors.Wrap(err, apperrors.EngineUnavailable, "build upload")
	}
	_ = mw.WriteField("response_format", "json")
	_ = mw.WriteField("temperature", "0.0")
	if language != "" {
		_ = mw.WriteField("language", language)
	}
	if err := mw.Close(); err != nil {
		return Result{}, apperrors.Wrap(err, apperrors.EngineUnavailable, "build upload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, &body)
	if err != nil {
		return Result{}, apperrors.Wrap(err, apperrors.EngineUnavailable, "build request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return Result{}, apperrors.Wrap(err, apperrors.EngineUnavailable, "whisper server unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, apperrors.Newf(apperrors.EngineUnavailable, "whisper server http %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var wr whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return Result{}, apperrors.Wrap(err, apperrors.EngineUnavailable, "decode whisper response")
	}

	text := strings.TrimSpace(wr.Text)
	if text == "" {
		return Result{}, apperrors.New(apperrors.EmptyResult, "engine returned no text")
	}

	detected := wr.Language
	if detected == "" {
		detected = language
	}
	return Result{Text: text, Language: detected}, nil
}

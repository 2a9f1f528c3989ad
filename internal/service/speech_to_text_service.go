package service

import (
	"context"
	"fmt"

	"talkback-be/internal/pkg/logger"
	"talkback-be/pkg/speech"
	"talkback-be/pkg/utils"
)

// ISpeechToTextService converts an inbound base64 audio frame into text.
// Transcription is a preprocessing stage: the caller routes the transcript
// into one of the generation pipelines afterwards.
type ISpeechToTextService interface {
	Transcribe(ctx context.Context, req AudioRequest) (string, error)
}

type speechToTextService struct {
	transcriber speech.Transcriber
	cleanup     ICleanupService
	tempDir     string
	logger      logger.ILogger
}

func NewSpeechToTextService(
	transcriber speech.Transcriber,
	cleanup ICleanupService,
	tempDir string,
	log logger.ILogger,
) ISpeechToTextService {
	return &speechToTextService{
		transcriber: transcriber,
		cleanup:     cleanup,
		tempDir:     tempDir,
		logger:      log,
	}
}

func (s *speechToTextService) Transcribe(ctx context.Context, req AudioRequest) (string, error) {
	path, err := utils.SaveBase64ToTempFile(s.tempDir, req.ConversationId, "wav", req.AudioBase64)
	if err != nil {
		return "", fmt.Errorf("decode inbound audio: %w", err)
	}
	// Temp audio must be removed whether recognition succeeds or not. A
	// malformed frame therefore leaves no residue, in files or in the log.
	defer s.cleanup.Schedule(path)

	transcript, err := s.transcriber.Transcribe(ctx, path)
	if err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}

	s.logger.Info("SpeechToText", "Audio transcribed", map[string]interface{}{
		"conversation_id": req.ConversationId,
		"chars":           len(transcript),
	})
	return transcript, nil
}

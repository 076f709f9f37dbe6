package service

import (
	"context"
	"fmt"
	"mood-mate-go/pkg/log"
	"mood-mate-go/pkg/tts"
	"os"
	"path"
	"path/filepath"
	"time"
)

// VoiceService 定义了将回复脚本合成为语音的操作。
type VoiceService interface {
	// Synthesize 将脚本合成为音频并落盘，返回可访问的相对 URL；
	// 未配置、脚本为空或合成失败时返回空串，不影响整体流程。
	Synthesize(ctx context.Context, script string) string
}

type voiceService struct {
	ttsClient tts.Client
	outputDir string
}

// NewVoiceService 创建一个新的 VoiceService 实例。
func NewVoiceService(ttsClient tts.Client, outputDir string) VoiceService {
	if outputDir == "" {
		outputDir = "static"
	}
	return &voiceService{ttsClient: ttsClient, outputDir: outputDir}
}

// Synthesize 调用 TTS 服务并将音频写入静态资源目录。
func (s *voiceService) Synthesize(ctx context.Context, script string) string {
	if script == "" || s.ttsClient == nil {
		log.Infof("[Voice] TTS 未配置或脚本为空，跳过语音合成")
		return ""
	}

	audio, err := s.ttsClient.Synthesize(ctx, script)
	if err != nil {
		log.Errorf("[Voice] 语音合成失败: %v", err)
		return ""
	}

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		log.Errorf("[Voice] 创建音频目录失败, dir: %s, error: %v", s.outputDir, err)
		return ""
	}

	filename := fmt.Sprintf("audio_%d.mp3", time.Now().Unix())
	filePath := filepath.Join(s.outputDir, filename)
	if err := os.WriteFile(filePath, audio, 0o644); err != nil {
		log.Errorf("[Voice] 写入音频文件失败, path: %s, error: %v", filePath, err)
		return ""
	}

	audioURL := path.Join("/", filepath.ToSlash(filePath))
	log.Infof("[Voice] 音频已保存: %s", audioURL)
	return audioURL
}

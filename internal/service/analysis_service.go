// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"encoding/json"
	"mood-mate-go/internal/model"
	"mood-mate-go/internal/repository"
	"mood-mate-go/pkg/llm"
	"mood-mate-go/pkg/log"
	"strconv"
	"strings"
)

const (
	// maxRiskLevel 是风险等级的上限，模型输出被收敛到 [0, maxRiskLevel]。
	maxRiskLevel = 3

	langInstruction = "written in English."

	// apologyReply 是模型调用失败时返回给用户的固定致歉语。
	apologyReply = "Sorry, the AI service is currently unresponsive. Please try again later."

	// 模型响应无法解析时替换的固定中性结果。
	fallbackTextReply   = "Thank you for sharing your feelings. It sounds like you are carrying a lot right now. Remember to take a deep breath and give yourself a moment of rest."
	fallbackVoiceScript = "I hear you. Thank you for reaching out. Please take a deep breath, you don't have to carry this alone. How about doing a little something just for yourself tonight?"

	// safetyDisclaimer 在 risk_level >= 3 时追加到回复末尾，每次请求恰好一次。
	safetyDisclaimer = "\n\n⚠️ Safety Alert: If you are having strong thoughts of self-harm, please reach out immediately to a trusted person, a mental health professional, or a local emergency hotline. This is not a medical service and is not a substitute for professional help."

	noHistoryPlaceholder = "No recent check-in history available."
)

// AnalysisService 定义了对打卡输入的情绪分析操作。
type AnalysisService interface {
	// Analyze 结合用户近期历史分析当前输入，返回带状态的结构化结果。
	Analyze(ctx context.Context, userID, text string) model.AnalysisOutcome
}

type analysisService struct {
	llmClient   llm.Client
	checkinRepo repository.CheckinRepository
	windowDays  int
}

// NewAnalysisService 创建一个新的 AnalysisService 实例。
func NewAnalysisService(llmClient llm.Client, checkinRepo repository.CheckinRepository, windowDays int) AnalysisService {
	return &analysisService{
		llmClient:   llmClient,
		checkinRepo: checkinRepo,
		windowDays:  windowDays,
	}
}

// Analyze 构建含历史上下文的 prompt，调用模型并解析结构化响应。
// 传输层失败返回 Fatal 结果短路管道；响应非法 JSON 时降级为固定中性结果。
func (s *analysisService) Analyze(ctx context.Context, userID, text string) model.AnalysisOutcome {
	view := s.checkinRepo.FetchRecent(ctx, userID, s.windowDays)
	historyContext := noHistoryPlaceholder
	if len(view.PromptSummaries) > 0 {
		historyContext = strings.Join(view.PromptSummaries, "\n")
	}

	prompt := buildCheckinPrompt(text, historyContext)

	raw, err := s.llmClient.Complete(ctx, prompt, nil)
	if err != nil {
		log.Errorf("[Analysis] 模型调用失败: %v", err)
		return model.AnalysisOutcome{
			Status: model.AnalysisFatal,
			Reason: err.Error(),
			Result: model.AnalysisResult{
				EmotionLabel: "error",
				RiskLevel:    0,
				TextReply:    apologyReply,
			},
		}
	}

	var parsed struct {
		EmotionLabel string          `json:"emotion_label"`
		RiskLevel    json.RawMessage `json:"risk_level"`
		TextReply    string          `json:"text_reply"`
		VoiceScript  string          `json:"voice_script"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		log.Warnf("[Analysis] 模型返回了非法 JSON，使用中性回退结果。原始内容: %s", raw)
		return model.AnalysisOutcome{
			Status: model.AnalysisFallback,
			Reason: "invalid model JSON",
			Result: model.AnalysisResult{
				EmotionLabel: "neutral",
				RiskLevel:    0,
				TextReply:    fallbackTextReply,
				VoiceScript:  fallbackVoiceScript,
			},
		}
	}

	result := model.AnalysisResult{
		EmotionLabel: parsed.EmotionLabel,
		RiskLevel:    coerceRiskLevel(parsed.RiskLevel),
		TextReply:    parsed.TextReply,
		VoiceScript:  parsed.VoiceScript,
	}
	if result.EmotionLabel == "" {
		result.EmotionLabel = "neutral"
	}

	if result.RiskLevel >= maxRiskLevel {
		result.TextReply += safetyDisclaimer
	}

	return model.AnalysisOutcome{Status: model.AnalysisOK, Result: result}
}

// buildCheckinPrompt 组装固定的打卡分析 prompt。
func buildCheckinPrompt(text, historyContext string) string {
	var b strings.Builder
	b.WriteString("You are a gentle, calm, and supportive Mental Health Check-in Assistant.\n")
	b.WriteString("Your goal is to analyze the user's current mood and provide a personalized, safe response.\n\n")
	b.WriteString("--- CONTEXT: RECENT CHECK-INS (For Personalized Advice) ---\n")
	b.WriteString("The user's mood history from the last 7 days is provided below. Use it to give more relevant advice.\n")
	b.WriteString(historyContext)
	b.WriteString("\n---------------------------------------------------------\n\n")
	b.WriteString("User's current input:\n")
	b.WriteString(text)
	b.WriteString("\n\nPlease output a JSON with the following fields:\n")
	b.WriteString("- emotion_label: A brief English mood word (e.g., \"sad\", \"anxious\", \"angry\", \"neutral\")\n")
	b.WriteString("- risk_level: Integer from 0 to 3 (0=Safe, 3=High Risk)\n")
	b.WriteString("- text_reply: A kind, supportive reply and specific advice " + langInstruction + " DO NOT mention you are an AI or bot.\n")
	b.WriteString("- voice_script: A short, natural, conversational script suitable for being read aloud for comfort, " + langInstruction + "\n\n")
	b.WriteString("Output ONLY the JSON object, with no extra text.\n")
	return b.String()
}

// coerceRiskLevel 将模型输出的任意形态 risk_level 收敛为 [0, maxRiskLevel] 的整数。
// 数字、数字字符串均可接受；无法转换时为 0。
func coerceRiskLevel(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}

	var level int
	if err := json.Unmarshal(raw, &level); err != nil {
		var f float64
		if err := json.Unmarshal(raw, &f); err == nil {
			level = int(f)
		} else {
			var str string
			if err := json.Unmarshal(raw, &str); err != nil {
				return 0
			}
			parsed, err := strconv.Atoi(strings.TrimSpace(str))
			if err != nil {
				return 0
			}
			level = parsed
		}
	}

	if level < 0 {
		return 0
	}
	if level > maxRiskLevel {
		return maxRiskLevel
	}
	return level
}

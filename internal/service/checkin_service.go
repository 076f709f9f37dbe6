package service

import (
	"context"
	"fmt"
	"mood-mate-go/internal/model"
	"mood-mate-go/internal/repository"
	"mood-mate-go/pkg/log"
)

// escalationNotice 在触发沙箱二次分析时追加到回复末尾（无论是否拿到结论）。
const escalationNotice = "\n\n🚨 Our system has initiated a secondary, isolated analysis due to the severity level. We are processing your submission with utmost priority."

// CheckinService 是打卡管道的编排层：
// 分析 → (高风险时沙箱升级) → 持久化 → 语音合成。
type CheckinService interface {
	// Checkin 处理一次打卡请求，始终返回结构完整的响应。
	Checkin(ctx context.Context, userID, text string) model.CheckinResponse
	// History 返回用户窗口内的打卡记录，按时间降序。
	History(ctx context.Context, userID string) []model.CheckinRecord
}

type checkinService struct {
	analysisService   AnalysisService
	escalationService EscalationService
	voiceService      VoiceService
	checkinRepo       repository.CheckinRepository
	windowDays        int
}

// NewCheckinService 创建一个新的 CheckinService 实例。
func NewCheckinService(
	analysisService AnalysisService,
	escalationService EscalationService,
	voiceService VoiceService,
	checkinRepo repository.CheckinRepository,
	windowDays int,
) CheckinService {
	return &checkinService{
		analysisService:   analysisService,
		escalationService: escalationService,
		voiceService:      voiceService,
		checkinRepo:       checkinRepo,
		windowDays:        windowDays,
	}
}

// Checkin 按固定顺序推进管道。分析失败是唯一的短路出口；
// 升级、持久化、合成各自尽力而为，失败只改变响应内容，不中断流程。
func (s *checkinService) Checkin(ctx context.Context, userID, text string) model.CheckinResponse {
	outcome := s.analysisService.Analyze(ctx, userID, text)
	if outcome.Status == model.AnalysisFatal {
		log.Errorf("[Checkin] 分析失败，短路返回错误响应, user: %s, reason: %s", userID, outcome.Reason)
		return model.CheckinResponse{
			EmotionLabel: outcome.Result.EmotionLabel,
			RiskLevel:    outcome.Result.RiskLevel,
			TextReply:    outcome.Result.TextReply,
		}
	}
	if outcome.Status == model.AnalysisFallback {
		log.Warnf("[Checkin] 分析结果已降级为中性回退, user: %s, reason: %s", userID, outcome.Reason)
	}
	result := outcome.Result

	if result.RiskLevel >= maxRiskLevel && s.escalationService.Available() {
		log.Warnf("[Checkin] 检测到高风险输入，启动隔离二次分析, user: %s, risk: %d", userID, result.RiskLevel)
		verdict := s.escalationService.Escalate(ctx, userID, text, result.RiskLevel)
		if verdict != nil {
			result.TextReply += fmt.Sprintf("\n\n[System Alert] Deep Scan Result: %s (Score: %v)",
				verdict.Recommendation, verdict.FinalRiskScore)
		}
		result.TextReply += escalationNotice
	}

	record := model.NewCheckinRecord(userID, text, result)
	if err := s.checkinRepo.Save(ctx, record); err != nil {
		log.Warnf("[Checkin] 持久化失败，继续处理, id: %s, error: %v", record.ID, err)
	}

	audioURL := s.voiceService.Synthesize(ctx, result.VoiceScript)

	resp := model.CheckinResponse{
		EmotionLabel: result.EmotionLabel,
		RiskLevel:    result.RiskLevel,
		TextReply:    result.TextReply,
	}
	if audioURL != "" {
		resp.AudioURL = &audioURL
	}
	return resp
}

// History 返回历史视图中的展示记录部分。
func (s *checkinService) History(ctx context.Context, userID string) []model.CheckinRecord {
	return s.checkinRepo.FetchRecent(ctx, userID, s.windowDays).Records
}

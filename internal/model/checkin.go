// Package model 定义了应用的核心数据结构。
package model

import (
	"fmt"
	"time"
)

// CheckinRecord 对应对象存储中的一条打卡记录，持久化后不可变。
type CheckinRecord struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	InputText    string `json:"input_text"`
	EmotionLabel string `json:"emotion_label"`
	RiskLevel    int    `json:"risk_level"`
	ModelReply   string `json:"model_reply"`
	Timestamp    int64  `json:"timestamp"`
	Date         string `json:"date"`
}

// NewCheckinRecord 以当前时间构造一条新的打卡记录。
// ID 为 user_id 拼接毫秒时间戳；同一用户单写者下唯一。
func NewCheckinRecord(userID, inputText string, result AnalysisResult) CheckinRecord {
	now := time.Now()
	return CheckinRecord{
		ID:           fmt.Sprintf("%s_%d", userID, now.UnixMilli()),
		UserID:       userID,
		InputText:    inputText,
		EmotionLabel: result.EmotionLabel,
		RiskLevel:    result.RiskLevel,
		ModelReply:   result.TextReply,
		Timestamp:    now.Unix(),
		Date:         now.Format("2006-01-02 15:04:05"),
	}
}

// HistoryView 是按请求重新计算的近期历史视图：
// 用于 prompt 的摘要行与用于展示的结构化记录，各自降序排列。
type HistoryView struct {
	PromptSummaries []string
	Records         []CheckinRecord
}

// AnalysisResult 是模型对一次打卡输入的结构化分析结果。
type AnalysisResult struct {
	EmotionLabel string `json:"emotion_label"`
	RiskLevel    int    `json:"risk_level"`
	TextReply    string `json:"text_reply"`
	VoiceScript  string `json:"voice_script"`
}

// AnalysisStatus 区分分析结果的三种形态。
type AnalysisStatus int

const (
	// AnalysisOK 表示模型返回了合法的结构化结果。
	AnalysisOK AnalysisStatus = iota
	// AnalysisFallback 表示模型响应无法解析，已替换为固定的中性结果。
	AnalysisFallback
	// AnalysisFatal 表示模型调用本身失败，请求短路返回错误响应。
	AnalysisFatal
)

// AnalysisOutcome 是带状态的分析结果，由编排层检查后决定后续流程。
type AnalysisOutcome struct {
	Status AnalysisStatus
	Reason string
	Result AnalysisResult
}

// SandboxVerdict 是沙箱二次分析产出的结构化结论。
type SandboxVerdict struct {
	Status         string  `json:"status"`
	Recommendation string  `json:"recommendation"`
	FinalRiskScore float64 `json:"final_risk_score"`
}

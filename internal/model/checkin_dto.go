package model

// ========== Checkin 相关 DTO ==========

// CheckinRequest 打卡提交请求体
type CheckinRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

// CheckinResponse 打卡响应体；AudioURL 在未合成音频时为 null。
type CheckinResponse struct {
	EmotionLabel string  `json:"emotion_label"`
	RiskLevel    int     `json:"risk_level"`
	TextReply    string  `json:"text_reply"`
	AudioURL     *string `json:"audio_url"`
}

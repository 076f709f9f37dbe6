package service

import (
	"context"
	"encoding/json"
	"fmt"
	"mood-mate-go/internal/model"
	"mood-mate-go/pkg/log"
	"mood-mate-go/pkg/sandbox"
	"time"
)

// EscalationService 定义了高风险输入的沙箱二次分析操作。
type EscalationService interface {
	// Available 报告沙箱后端是否已配置。
	Available() bool
	// Escalate 在一次性沙箱中执行深度风险分析，返回结论；
	// 任何环节失败都只记录日志并返回 nil，绝不向管道抛出。
	Escalate(ctx context.Context, userID, text string, riskLevel int) *model.SandboxVerdict
}

type sandboxEscalationService struct {
	client         sandbox.Client
	timeoutSeconds int
}

// NewEscalationService 创建一个新的 EscalationService 实例。
func NewEscalationService(client sandbox.Client, timeoutSeconds int) EscalationService {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 60
	}
	return &sandboxEscalationService{client: client, timeoutSeconds: timeoutSeconds}
}

// Available 报告沙箱客户端是否已初始化。
func (s *sandboxEscalationService) Available() bool {
	return s.client != nil
}

// Escalate 的沙箱生命周期完全限定在本次调用内：
// 创建成功后无论后续哪一步失败，退出前必定销毁沙箱。
func (s *sandboxEscalationService) Escalate(ctx context.Context, userID, text string, riskLevel int) *model.SandboxVerdict {
	if s.client == nil {
		return nil
	}

	name := fmt.Sprintf("risk-%s-%d", userID, time.Now().Unix())
	sb, err := s.client.Create(ctx, name, s.timeoutSeconds)
	if err != nil {
		log.Errorf("[Escalation] 创建沙箱失败, name: %s, error: %v", name, err)
		return nil
	}
	defer func() {
		if derr := s.client.Delete(ctx, sb); derr != nil {
			log.Errorf("[Escalation] 销毁沙箱失败, id: %s, error: %v", sb.ID, derr)
		} else {
			log.Infof("[Escalation] 隔离分析结束，沙箱已销毁, id: %s", sb.ID)
		}
	}()

	code, err := buildAnalysisTask(userID, text, riskLevel, time.Now().Unix())
	if err != nil {
		log.Errorf("[Escalation] 构建分析任务失败: %v", err)
		return nil
	}

	result, err := s.client.RunCode(ctx, sb, code)
	if err != nil {
		log.Errorf("[Escalation] 沙箱执行失败, id: %s, error: %v", sb.ID, err)
		return nil
	}
	if result.ExitCode != 0 || result.Result == "" {
		log.Errorf("[Escalation] 沙箱任务异常结束, id: %s, exitCode: %d, output: %s", sb.ID, result.ExitCode, result.Result)
		return nil
	}

	var verdict model.SandboxVerdict
	if err := json.Unmarshal([]byte(result.Result), &verdict); err != nil {
		log.Errorf("[Escalation] 沙箱输出不是合法 JSON: %s", result.Result)
		return nil
	}

	log.Infof("[Escalation] 深度分析完成, recommendation: %s, score: %.2f", verdict.Recommendation, verdict.FinalRiskScore)
	return &verdict
}

// analysisTaskInputs 是传入沙箱任务的全部输入。
type analysisTaskInputs struct {
	UserID      string `json:"user_id"`
	InputText   string `json:"input_text"`
	InitialRisk int    `json:"initial_risk"`
	Timestamp   int64  `json:"timestamp"`
}

// buildAnalysisTask 生成在沙箱内运行的自包含任务源码。
// 输入以序列化 JSON 嵌入，用户文本不会作为代码被解释。
func buildAnalysisTask(userID, text string, riskLevel int, timestamp int64) (string, error) {
	payload, err := json.Marshal(analysisTaskInputs{
		UserID:      userID,
		InputText:   text,
		InitialRisk: riskLevel,
		Timestamp:   timestamp,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal task inputs: %w", err)
	}

	code := fmt.Sprintf(`import json
import random

user_data = json.loads(%q)

# 在基础风险上叠加一个有界随机扰动，模拟深度风险模型的重新评分。
final_risk_score = user_data["initial_risk"] + random.uniform(0.1, 0.5)

if final_risk_score >= 3.0:
    recommendation = "Immediate professional contact required."
else:
    recommendation = "System monitoring initiated."

result_payload = {
    "status": "isolated_analysis_complete",
    "recommendation": recommendation,
    "final_risk_score": round(final_risk_score, 2),
}

print(json.dumps(result_payload))
`, string(payload))

	return code, nil
}

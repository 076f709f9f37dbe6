package service

import (
	"context"
	"fmt"
	"mood-mate-go/internal/model"
	"mood-mate-go/pkg/llm"
	"strings"
	"testing"
)

// fakeLLM 返回固定响应并记录收到的 prompt。
type fakeLLM struct {
	response  string
	err       error
	gotPrompt string
}

func (f *fakeLLM) Complete(_ context.Context, prompt string, _ *llm.GenerationParams) (string, error) {
	f.gotPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

// fakeHistoryRepo 返回固定的历史视图。
type fakeHistoryRepo struct {
	view  model.HistoryView
	saved []model.CheckinRecord
}

func (f *fakeHistoryRepo) FetchRecent(_ context.Context, _ string, _ int) model.HistoryView {
	return f.view
}

func (f *fakeHistoryRepo) Save(_ context.Context, record model.CheckinRecord) error {
	f.saved = append(f.saved, record)
	return nil
}

func emptyView() model.HistoryView {
	return model.HistoryView{PromptSummaries: []string{}, Records: []model.CheckinRecord{}}
}

func TestAnalyzeValidResponse(t *testing.T) {
	t.Parallel()

	client := &fakeLLM{response: `{"emotion_label":"sad","risk_level":2,"text_reply":"take it easy","voice_script":"breathe"}`}
	svc := NewAnalysisService(client, &fakeHistoryRepo{view: emptyView()}, 7)

	outcome := svc.Analyze(context.Background(), "u1", "rough day")
	if outcome.Status != model.AnalysisOK {
		t.Fatalf("Status=%v, want OK", outcome.Status)
	}
	r := outcome.Result
	if r.EmotionLabel != "sad" || r.RiskLevel != 2 || r.TextReply != "take it easy" || r.VoiceScript != "breathe" {
		t.Fatalf("unexpected result: %+v", r)
	}
}

func TestAnalyzeRiskLevelCoercion(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want int
	}{
		{`2`, 2},
		{`"2"`, 2},
		{`2.7`, 2},
		{`"abc"`, 0},
		{`null`, 0},
		{`7`, 3},
		{`-2`, 0},
		{`true`, 0},
	}

	for _, tc := range cases {
		client := &fakeLLM{response: fmt.Sprintf(`{"emotion_label":"neutral","risk_level":%s,"text_reply":"ok","voice_script":""}`, tc.raw)}
		svc := NewAnalysisService(client, &fakeHistoryRepo{view: emptyView()}, 7)
		outcome := svc.Analyze(context.Background(), "u1", "text")
		if outcome.Result.RiskLevel != tc.want {
			t.Fatalf("risk_level %s: got %d, want %d", tc.raw, outcome.Result.RiskLevel, tc.want)
		}
	}
}

func TestAnalyzeNonJSONFallsBack(t *testing.T) {
	t.Parallel()

	client := &fakeLLM{response: "I am so sorry you feel this way..."}
	svc := NewAnalysisService(client, &fakeHistoryRepo{view: emptyView()}, 7)

	outcome := svc.Analyze(context.Background(), "u1", "text")
	if outcome.Status != model.AnalysisFallback {
		t.Fatalf("Status=%v, want Fallback", outcome.Status)
	}
	r := outcome.Result
	if r.EmotionLabel != "neutral" || r.RiskLevel != 0 {
		t.Fatalf("unexpected fallback fields: %+v", r)
	}
	if r.TextReply != fallbackTextReply || r.VoiceScript != fallbackVoiceScript {
		t.Fatalf("fallback texts not used verbatim: %+v", r)
	}
}

func TestAnalyzeTransportFailureIsFatal(t *testing.T) {
	t.Parallel()

	client := &fakeLLM{err: fmt.Errorf("connection refused")}
	svc := NewAnalysisService(client, &fakeHistoryRepo{view: emptyView()}, 7)

	outcome := svc.Analyze(context.Background(), "u1", "text")
	if outcome.Status != model.AnalysisFatal {
		t.Fatalf("Status=%v, want Fatal", outcome.Status)
	}
	r := outcome.Result
	if r.EmotionLabel != "error" || r.RiskLevel != 0 || r.TextReply != apologyReply || r.VoiceScript != "" {
		t.Fatalf("unexpected fatal result: %+v", r)
	}
}

func TestAnalyzeHighRiskAppendsDisclaimerOnce(t *testing.T) {
	t.Parallel()

	client := &fakeLLM{response: `{"emotion_label":"desperate","risk_level":3,"text_reply":"please hold on","voice_script":"s"}`}
	svc := NewAnalysisService(client, &fakeHistoryRepo{view: emptyView()}, 7)

	outcome := svc.Analyze(context.Background(), "u1", "text")
	if n := strings.Count(outcome.Result.TextReply, "Safety Alert"); n != 1 {
		t.Fatalf("disclaimer count=%d, want 1; reply=%q", n, outcome.Result.TextReply)
	}
	if !strings.HasPrefix(outcome.Result.TextReply, "please hold on") {
		t.Fatalf("original reply not preserved: %q", outcome.Result.TextReply)
	}
}

func TestAnalyzeLowRiskNoDisclaimer(t *testing.T) {
	t.Parallel()

	client := &fakeLLM{response: `{"emotion_label":"calm","risk_level":2,"text_reply":"nice","voice_script":""}`}
	svc := NewAnalysisService(client, &fakeHistoryRepo{view: emptyView()}, 7)

	outcome := svc.Analyze(context.Background(), "u1", "text")
	if strings.Contains(outcome.Result.TextReply, "Safety Alert") {
		t.Fatalf("disclaimer appended below threshold: %q", outcome.Result.TextReply)
	}
}

func TestAnalyzePromptHistoryContext(t *testing.T) {
	t.Parallel()

	client := &fakeLLM{response: `{"emotion_label":"neutral","risk_level":0,"text_reply":"ok","voice_script":""}`}
	svc := NewAnalysisService(client, &fakeHistoryRepo{view: emptyView()}, 7)
	svc.Analyze(context.Background(), "u1", "my current mood text")

	if !strings.Contains(client.gotPrompt, noHistoryPlaceholder) {
		t.Fatalf("empty history should use placeholder, prompt: %q", client.gotPrompt)
	}
	if !strings.Contains(client.gotPrompt, "my current mood text") {
		t.Fatalf("prompt missing user input: %q", client.gotPrompt)
	}

	client2 := &fakeLLM{response: `{"emotion_label":"neutral","risk_level":0,"text_reply":"ok","voice_script":""}`}
	view := emptyView()
	view.PromptSummaries = []string{"Date: 2024-02-01 10:00:00, Mood: sad, Text: yesterday..."}
	svc2 := NewAnalysisService(client2, &fakeHistoryRepo{view: view}, 7)
	svc2.Analyze(context.Background(), "u1", "today")

	if !strings.Contains(client2.gotPrompt, "Mood: sad") {
		t.Fatalf("prompt missing history line: %q", client2.gotPrompt)
	}
	if strings.Contains(client2.gotPrompt, noHistoryPlaceholder) {
		t.Fatalf("placeholder present despite history: %q", client2.gotPrompt)
	}
}

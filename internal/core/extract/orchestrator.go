package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"recipe-extractor/internal/core/ai/service"
	"recipe-extractor/internal/core/video"
	"recipe-extractor/internal/pkg/common"
	"recipe-extractor/internal/store"

	"go.uber.org/zap"
)

// Result 單次抽取的對外結果
type Result struct {
	Platform         common.Platform         `json:"platform"`
	UniqueVideoID    string                  `json:"unique_video_id"`
	ExtractionMethod common.ExtractionMethod `json:"extraction_method"`
	RefinementStatus common.RefinementStatus `json:"refinement_status"`
	TokensUsed       *int                    `json:"tokens_used"`
	AIModel          string                  `json:"ai_model,omitempty"`
	RefinementError  *string                 `json:"refinement_error"`
	ExtractionFlow   string                  `json:"extraction_flow"`
	Recipe           *common.RefinedRecipe   `json:"recipe"`
	RecipeText       string                  `json:"recipe_text"`
	FromCache        bool                    `json:"from_cache"`
}

// CandidateGatherer 取得影片候選文字的最小介面
type CandidateGatherer interface {
	GatherCandidates(ctx context.Context, identity *common.VideoIdentity) []common.CandidateText
}

// Analyzer 影片解析層的最小介面
type Analyzer interface {
	Analyze(ctx context.Context, identity *common.VideoIdentity, meta service.UsageMeta) (*AnalysisOutcome, error)
}

// Orchestrator 抽取管線的狀態機
// 層級按成本排序：快取 → 說明欄 → 投稿者留言 → 影片解析
// 每層的結果決定下一層是否執行，嚴格循序，不並行
type Orchestrator struct {
	store    store.Store
	gatherer CandidateGatherer
	detector *Detector
	refiner  *Refiner
	analyzer Analyzer
}

// NewOrchestrator 創建抽取協調器
func NewOrchestrator(st store.Store, gatherer CandidateGatherer, detector *Detector, refiner *Refiner, analyzer Analyzer) *Orchestrator {
	return &Orchestrator{
		store:    st,
		gatherer: gatherer,
		detector: detector,
		refiner:  refiner,
		analyzer: analyzer,
	}
}

// flowTrace 人類可讀的層級軌跡
type flowTrace struct {
	steps []string
}

func (t *flowTrace) add(step string) {
	t.steps = append(t.steps, step)
}

func (t *flowTrace) String() string {
	return strings.Join(t.steps, " → ")
}

// Extract 執行一次完整抽取
// force 為真時先刪再抽（顯式重抽＝delete+reinsert，不原地更新）
func (o *Orchestrator) Extract(ctx context.Context, videoURL string, force bool) (*Result, error) {
	identity, err := video.ResolveIdentity(videoURL)
	if err != nil {
		return nil, common.NewValidationError(fmt.Sprintf("invalid video url: %v", err))
	}

	if force {
		if err := o.store.DeleteRecord(ctx, identity.Platform, identity.UniqueVideoID); err != nil {
			return nil, err
		}
	}

	// 快取永遠先問，命中就是終局
	cached, err := o.store.GetRecord(ctx, identity.Platform, identity.UniqueVideoID)
	if err == nil {
		common.LogCacheHit("extraction", identity.UniqueVideoID)
		return resultFromRecord(cached, true), nil
	}
	if !errors.Is(err, common.ErrRecordNotFound) {
		return nil, err
	}

	meta := service.UsageMeta{
		Platform:      identity.Platform,
		UniqueVideoID: identity.UniqueVideoID,
	}
	trace := &flowTrace{}

	candidates := o.gatherer.GatherCandidates(ctx, identity)

	// 文字層：說明欄在前、投稿者留言在後
	for _, candidate := range candidates {
		trace.add("check " + string(candidate.Source))

		detection := o.detector.Detect(ctx, candidate, meta)
		if !detection.KeywordHit || !detection.AIValidated {
			trace.add("no recipe")
			continue
		}

		outcome := o.refiner.Refine(ctx, candidate, meta)
		trace.add(string(outcome.Status))

		rec := &common.ExtractionRecord{
			Platform:         identity.Platform,
			UniqueVideoID:    identity.UniqueVideoID,
			Method:           methodForSource(candidate.Source),
			RefinedText:      outcome.RefinedText,
			RefinementStatus: outcome.Status,
			AIModel:          outcome.Model,
			TokensUsed:       outcome.TokensUsed,
			ExtractionFlow:   trace.String(),
		}
		result, err := o.persist(ctx, rec)
		if err != nil {
			return nil, err
		}
		result.Recipe = outcome.Recipe
		if outcome.ErrorDetail != "" {
			result.RefinementError = &outcome.ErrorDetail
		}
		return result, nil
	}

	// 影片層：最後也最貴的一層
	trace.add("video analysis")
	outcome, err := o.analyzer.Analyze(ctx, identity, meta)
	if err != nil {
		trace.add("failed")
		common.LogWarn("影片解析失敗",
			zap.Error(err),
			zap.String("platform", string(identity.Platform)),
			zap.String("video_id", identity.UniqueVideoID),
		)
		errDetail := err.Error()
		rec := &common.ExtractionRecord{
			Platform:         identity.Platform,
			UniqueVideoID:    identity.UniqueVideoID,
			Method:           common.MethodAIVideo,
			RefinementStatus: common.RefinementFailed,
			ExtractionFlow:   trace.String(),
		}
		result, perr := o.persist(ctx, rec)
		if perr != nil {
			return nil, perr
		}
		result.RefinementError = &errDetail
		return result, nil
	}

	trace.add("success")
	rec := &common.ExtractionRecord{
		Platform:      identity.Platform,
		UniqueVideoID: identity.UniqueVideoID,
		Method:        common.MethodAIVideo,
		RefinedText:   outcome.RefinedText,
		// 影片層自己產出結構化結果，沒有經過整形層
		RefinementStatus: common.RefinementNotApplicable,
		AIModel:          outcome.Model,
		TokensUsed:       outcome.TokensUsed,
		ExtractionFlow:   trace.String(),
	}
	result, err := o.persist(ctx, rec)
	if err != nil {
		return nil, err
	}
	result.Recipe = outcome.Recipe
	return result, nil
}

// persist 寫入帳本
// 唯一鍵衝突表示有並行請求先寫贏了：重讀對方的紀錄當快取命中用
func (o *Orchestrator) persist(ctx context.Context, rec *common.ExtractionRecord) (*Result, error) {
	err := o.store.InsertRecord(ctx, rec)
	if err == nil {
		return resultFromRecord(rec, false), nil
	}
	if errors.Is(err, common.ErrRecordConflict) {
		common.LogInfo("並行寫入衝突，改用既有紀錄",
			zap.String("platform", string(rec.Platform)),
			zap.String("video_id", rec.UniqueVideoID),
		)
		existing, gerr := o.store.GetRecord(ctx, rec.Platform, rec.UniqueVideoID)
		if gerr != nil {
			return nil, gerr
		}
		return resultFromRecord(existing, true), nil
	}
	return nil, err
}

func resultFromRecord(rec *common.ExtractionRecord, fromCache bool) *Result {
	result := &Result{
		Platform:         rec.Platform,
		UniqueVideoID:    rec.UniqueVideoID,
		ExtractionMethod: rec.Method,
		RefinementStatus: rec.RefinementStatus,
		AIModel:          rec.AIModel,
		ExtractionFlow:   rec.ExtractionFlow,
		RecipeText:       rec.RefinedText,
		FromCache:        fromCache,
	}
	if rec.TokensUsed > 0 {
		tokens := rec.TokensUsed
		result.TokensUsed = &tokens
	}
	return result
}

func methodForSource(source common.CandidateSource) common.ExtractionMethod {
	if source == common.SourceComment {
		return common.MethodComment
	}
	return common.MethodDescription
}

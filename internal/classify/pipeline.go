// Package classify implements the company classification pipeline:
// scrape website evidence, classify against the theme taxonomy with an LLM,
// verify the result with a search-grounded model, then persist a single
// immutable mapping per company.
package classify

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tpeters15/theme-score-nexus/internal/config"
	"github.com/tpeters15/theme-score-nexus/internal/model"
	"github.com/tpeters15/theme-score-nexus/internal/store"
	"github.com/tpeters15/theme-score-nexus/pkg/anthropic"
	"github.com/tpeters15/theme-score-nexus/pkg/firecrawl"
	"github.com/tpeters15/theme-score-nexus/pkg/perplexity"
)

const (
	maxWebsiteEvidence = 8000

	// NoThemeID is what the model returns when no theme fits.
	NoThemeID = "none"

	StageScrape   = "scrape"
	StageClassify = "classify"
	StageVerify   = "verify"
	StageResearch = "research"
)

// Request identifies the company to classify. Either CompanyID (existing row)
// or Name must be set.
type Request struct {
	CompanyID   string `json:"company_id,omitempty"`
	Name        string `json:"company_name,omitempty"`
	Website     string `json:"website,omitempty"`
	Description string `json:"business_description,omitempty"`
}

// Result is the outcome of one classification.
type Result struct {
	Company          *model.Company      `json:"company"`
	Mapping          *model.ThemeMapping `json:"mapping,omitempty"`
	ConfidenceBucket string              `json:"confidence_bucket,omitempty"`
	StagesUsed       []string            `json:"stages_used"`
	AlreadyMapped    bool                `json:"already_mapped"`
}

// Classifier runs the pipeline. All external clients are interfaces so tests
// can drive the pipeline without network access.
type Classifier struct {
	store      store.Store
	scraper    firecrawl.Client
	ai         anthropic.Client
	researcher perplexity.Client

	anthropicCfg  config.AnthropicConfig
	perplexityCfg config.PerplexityConfig
	cfg           config.ClassifyConfig
	policy        Policy
}

// New creates a Classifier. scraper and researcher may be nil; the
// corresponding stages are skipped (with the no-website penalty applied when
// scraping is unavailable).
func New(st store.Store, scraper firecrawl.Client, ai anthropic.Client, researcher perplexity.Client, cfg *config.Config) *Classifier {
	return &Classifier{
		store:         st,
		scraper:       scraper,
		ai:            ai,
		researcher:    researcher,
		anthropicCfg:  cfg.Anthropic,
		perplexityCfg: cfg.Perplexity,
		cfg:           cfg.Classify,
		policy: Policy{
			VerificationPenalty: cfg.Classify.VerificationPenalty,
			NoWebsitePenalty:    cfg.Classify.NoWebsitePenalty,
		},
	}
}

// Classify runs the full pipeline for one company. A company that already has
// a mapping is returned as-is: mappings are immutable, re-running the
// pipeline never overwrites an earlier result.
func (c *Classifier) Classify(ctx context.Context, req Request) (*Result, error) {
	company, err := c.resolveCompany(ctx, req)
	if err != nil {
		return nil, err
	}

	// Idempotence pre-check. The unique constraint in the store is the real
	// guard; this just avoids burning tokens on an already-mapped company.
	if existing, err := c.store.GetThemeMapping(ctx, company.ID); err != nil {
		return nil, err
	} else if existing != nil {
		zap.L().Info("classify: company already mapped",
			zap.String("company_id", company.ID),
			zap.String("theme_id", existing.ThemeID),
		)
		return &Result{
			Company:          company,
			Mapping:          existing,
			ConfidenceBucket: Bucket(existing.ConfidenceScore),
			AlreadyMapped:    true,
		}, nil
	}

	themes, err := c.store.ListThemes(ctx)
	if err != nil {
		return nil, err
	}
	if len(themes) == 0 {
		return nil, eris.New("classify: no themes defined")
	}

	result := &Result{Company: company}

	// Stage 1: website evidence. Scrape failures degrade the classification
	// instead of aborting it; the penalty accounts for the missing evidence.
	websiteContent, websiteAvailable := c.scrape(ctx, company)
	if websiteAvailable {
		result.StagesUsed = append(result.StagesUsed, StageScrape)
	}

	// Stage 2: LLM classification. Failure here is fatal: with no
	// classification there is nothing to verify or persist.
	cls, err := c.classifyLLM(ctx, company, themes, websiteContent)
	if err != nil {
		if uerr := c.store.UpdateCompanyStatus(ctx, company.ID, model.ClassificationFailed, err.Error()); uerr != nil {
			zap.L().Error("classify: failed to mark company failed", zap.String("company_id", company.ID), zap.Error(uerr))
		}
		company.ClassificationStatus = model.ClassificationFailed
		return nil, err
	}
	result.StagesUsed = append(result.StagesUsed, StageClassify)

	if cls.ThemeID == NoThemeID {
		if err := c.store.UpdateCompanyStatus(ctx, company.ID, model.ClassificationNoThemeFound, ""); err != nil {
			return nil, err
		}
		company.ClassificationStatus = model.ClassificationNoThemeFound
		zap.L().Info("classify: no theme found", zap.String("company", company.Name))
		return result, nil
	}

	theme := findTheme(themes, cls.ThemeID)
	if theme == nil {
		err := eris.Errorf("classify: model returned unknown theme %q", cls.ThemeID)
		if uerr := c.store.UpdateCompanyStatus(ctx, company.ID, model.ClassificationFailed, err.Error()); uerr != nil {
			zap.L().Error("classify: failed to mark company failed", zap.String("company_id", company.ID), zap.Error(uerr))
		}
		company.ClassificationStatus = model.ClassificationFailed
		return nil, err
	}

	// Stage 3: search-grounded verification. Unavailable or failed calls are
	// treated as "not contradicted": the penalty only applies when the
	// verifier affirmatively disagrees.
	verificationPassed := true
	if c.researcher != nil {
		if v, ok := c.verify(ctx, company, theme, cls.Rationale); ok {
			result.StagesUsed = append(result.StagesUsed, StageVerify)
			verificationPassed = v.Verified
			if !v.Verified {
				zap.L().Warn("classify: verification contradicted classification",
					zap.String("company", company.Name),
					zap.String("theme", theme.Name),
					zap.String("reason", v.Reason),
				)
			}
		}
	}

	// Stage 4: optional research summary.
	var summary string
	if c.researcher != nil && c.cfg.SummaryEnabled {
		if s, ok := c.research(ctx, company, theme); ok {
			result.StagesUsed = append(result.StagesUsed, StageResearch)
			summary = s
		}
	}

	adjusted := c.policy.Adjust(cls.Confidence, verificationPassed, websiteAvailable)

	mapping := &model.ThemeMapping{
		CompanyID:          company.ID,
		ThemeID:            theme.ID,
		ThemeName:          theme.Name,
		Pillar:             theme.Pillar,
		Sector:             theme.Sector,
		BusinessModel:      cls.BusinessModel,
		ConfidenceScore:    adjusted,
		Rationale:          cls.Rationale,
		VerificationPassed: verificationPassed,
		ResearchSummary:    summary,
	}

	persisted, created, err := c.store.InsertThemeMappingIfAbsent(ctx, mapping)
	if err != nil {
		return nil, err
	}
	if !created {
		// Lost a race with a concurrent classification; the first write wins.
		zap.L().Info("classify: mapping already existed at persist time",
			zap.String("company_id", company.ID))
		result.AlreadyMapped = true
	}
	if err := c.store.UpdateCompanyStatus(ctx, company.ID, model.ClassificationCompleted, ""); err != nil {
		return nil, err
	}
	company.ClassificationStatus = model.ClassificationCompleted

	result.Mapping = persisted
	result.ConfidenceBucket = Bucket(persisted.ConfidenceScore)

	zap.L().Info("classify: company classified",
		zap.String("company", company.Name),
		zap.String("theme", persisted.ThemeName),
		zap.Float64("confidence", persisted.ConfidenceScore),
		zap.String("bucket", result.ConfidenceBucket),
		zap.Bool("verification_passed", verificationPassed),
	)
	return result, nil
}

// resolveCompany loads an existing company or creates a new row in pending
// state. Name-based requests match against the normalized name first, so
// "Acme Energy GmbH" and "acme energy" resolve to the same row instead of
// creating duplicates.
func (c *Classifier) resolveCompany(ctx context.Context, req Request) (*model.Company, error) {
	if req.CompanyID != "" {
		company, err := c.store.GetCompany(ctx, req.CompanyID)
		if err != nil {
			return nil, err
		}
		if company == nil {
			return nil, eris.Errorf("classify: company not found: %s", req.CompanyID)
		}
		return company, nil
	}
	if req.Name == "" {
		return nil, eris.New("classify: company name or id required")
	}

	normalized := NormalizeName(req.Name)
	if normalized != "" {
		existing, err := c.store.FindCompanyByNormalizedName(ctx, normalized)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			zap.L().Debug("classify: resolved existing company by name",
				zap.String("name", req.Name),
				zap.String("company_id", existing.ID),
			)
			return existing, nil
		}
	}

	company := &model.Company{
		Name:                req.Name,
		NormalizedName:      normalized,
		Website:             req.Website,
		BusinessDescription: req.Description,
	}
	if err := c.store.CreateCompany(ctx, company); err != nil {
		return nil, err
	}
	return company, nil
}

func (c *Classifier) scrape(ctx context.Context, company *model.Company) (content string, available bool) {
	if company.Website == "" || c.scraper == nil {
		return "", false
	}

	timeout := time.Duration(c.cfg.ScrapeTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.scraper.Scrape(sctx, firecrawl.ScrapeRequest{
		URL:             company.Website,
		Formats:         []string{"markdown"},
		OnlyMainContent: true,
	})
	if err != nil || !resp.Success {
		zap.L().Warn("classify: scrape failed, continuing without website evidence",
			zap.String("company", company.Name),
			zap.String("website", company.Website),
			zap.Error(err),
		)
		return "", false
	}
	if resp.Data.Markdown == "" {
		return "", false
	}
	return resp.Data.Markdown, true
}

func (c *Classifier) classifyLLM(ctx context.Context, company *model.Company, themes []model.Theme, websiteContent string) (*classification, error) {
	maxTokens := c.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	resp, err := c.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.anthropicCfg.Model,
		MaxTokens: maxTokens,
		System:    classifySystemPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: buildClassifyPrompt(company, themes, websiteContent)},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "classify: classification request")
	}
	return parseClassification(resp.Text)
}

func (c *Classifier) verify(ctx context.Context, company *model.Company, theme *model.Theme, rationale string) (*verification, bool) {
	timeout := time.Duration(c.cfg.ResearchTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	vctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.researcher.ChatCompletion(vctx, perplexity.ChatCompletionRequest{
		Model: c.perplexityCfg.Model,
		Messages: []perplexity.Message{
			{Role: "system", Content: verifySystemPrompt},
			{Role: "user", Content: buildVerifyPrompt(company, theme, rationale)},
		},
	})
	if err != nil || len(resp.Choices) == 0 {
		zap.L().Warn("classify: verification unavailable, keeping initial classification",
			zap.String("company", company.Name),
			zap.Error(err),
		)
		return nil, false
	}

	v, err := parseVerification(resp.Choices[0].Message.Content)
	if err != nil {
		zap.L().Warn("classify: unparseable verification response",
			zap.String("company", company.Name),
			zap.Error(err),
		)
		return nil, false
	}
	return v, true
}

func (c *Classifier) research(ctx context.Context, company *model.Company, theme *model.Theme) (string, bool) {
	timeout := time.Duration(c.cfg.ResearchTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.researcher.ChatCompletion(rctx, perplexity.ChatCompletionRequest{
		Model: c.perplexityCfg.Model,
		Messages: []perplexity.Message{
			{Role: "user", Content: fmt.Sprintf(summaryPrompt, company.Name, company.Website, theme.Name)},
		},
	})
	if err != nil || len(resp.Choices) == 0 {
		zap.L().Warn("classify: research summary unavailable",
			zap.String("company", company.Name),
			zap.Error(err),
		)
		return "", false
	}
	return resp.Choices[0].Message.Content, true
}

func findTheme(themes []model.Theme, id string) *model.Theme {
	for i := range themes {
		if themes[i].ID == id {
			return &themes[i]
		}
	}
	return nil
}

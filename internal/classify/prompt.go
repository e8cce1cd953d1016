package classify

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tpeters15/theme-score-nexus/internal/model"
)

const classifySystemPrompt = `You classify companies into investment themes for a private-markets research team. You are given a taxonomy of themes and evidence about one company. Pick the single best-fitting theme, or "none" if no theme fits. Respond with a valid JSON object:
{"theme_id": "<id or none>", "confidence": <0.0-1.0>, "rationale": "<one or two sentences>", "business_model": "<products|services|software|infrastructure|other>"}`

const verifySystemPrompt = `You verify company-to-theme classifications using current web knowledge. Given a company and a proposed investment theme, state whether the classification is consistent with what the company actually does. Respond with a valid JSON object:
{"verified": <true|false>, "reason": "<one sentence>"}`

const summaryPrompt = `Write a concise research summary (3-5 sentences) of %s (%s): what it does, who it serves, and anything relevant to the "%s" investment theme. Plain text only.`

// buildThemeTaxonomy renders the theme list for the classification prompt.
// In-scope and out-of-scope examples are included because they are what the
// model most often gets wrong without them.
func buildThemeTaxonomy(themes []model.Theme) string {
	var b strings.Builder
	for _, t := range themes {
		fmt.Fprintf(&b, "- id: %s\n  name: %s", t.ID, t.Name)
		if t.Pillar != "" {
			fmt.Fprintf(&b, "\n  pillar: %s", t.Pillar)
		}
		if t.Sector != "" {
			fmt.Fprintf(&b, "\n  sector: %s", t.Sector)
		}
		if t.Description != "" {
			fmt.Fprintf(&b, "\n  description: %s", t.Description)
		}
		if len(t.InScope) > 0 {
			fmt.Fprintf(&b, "\n  in_scope: %s", strings.Join(t.InScope, "; "))
		}
		if len(t.OutOfScope) > 0 {
			fmt.Fprintf(&b, "\n  out_of_scope: %s", strings.Join(t.OutOfScope, "; "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// truncateEvidence caps s at max bytes, backing up to a rune boundary so a
// multi-byte character is never split.
func truncateEvidence(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func buildClassifyPrompt(c *model.Company, themes []model.Theme, websiteContent string) string {
	var b strings.Builder
	b.WriteString("Themes:\n")
	b.WriteString(buildThemeTaxonomy(themes))
	fmt.Fprintf(&b, "\nCompany: %s\n", c.Name)
	if c.Website != "" {
		fmt.Fprintf(&b, "Website: %s\n", c.Website)
	}
	if c.BusinessDescription != "" {
		fmt.Fprintf(&b, "Description: %s\n", c.BusinessDescription)
	}
	if websiteContent != "" {
		websiteContent = truncateEvidence(websiteContent, maxWebsiteEvidence)
		fmt.Fprintf(&b, "\nWebsite content:\n%s\n", websiteContent)
	} else {
		b.WriteString("\nNo website content available; classify from the name and description alone.\n")
	}
	return b.String()
}

func buildVerifyPrompt(c *model.Company, theme *model.Theme, rationale string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s", c.Name)
	if c.Website != "" {
		fmt.Fprintf(&b, " (%s)", c.Website)
	}
	fmt.Fprintf(&b, "\nProposed theme: %s", theme.Name)
	if theme.Description != "" {
		fmt.Fprintf(&b, ": %s", theme.Description)
	}
	fmt.Fprintf(&b, "\nClassification rationale: %s\n", rationale)
	b.WriteString("\nIs this classification consistent with what the company actually does?")
	return b.String()
}

package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/grantgenius/grantgenius-backend/internal/pkg/apperror"
)

// Параметры выборки для черновика заявки.
const (
	ProposalTemperature = 0.7
	ProposalMaxTokens   = 3000
)

// ProposalSections разделы, которые обязан содержать черновик.
var ProposalSections = []string{
	"Executive Summary",
	"Introduction",
	"Problem Statement",
	"Objectives",
	"Methodology",
	"Expected Outcomes",
	"Budget Overview",
	"Sustainability Plan",
	"Conclusion",
}

const proposalSystemPrompt = "You are an expert grant proposal writer with deep knowledge of African development, " +
	"non-profit organizations, and effective grant writing techniques. Your proposals are professional, " +
	"compelling, and tailored to the specific grant opportunity."

// GenerateInput данные для черновика.
type GenerateInput struct {
	GrantTitle       string
	Goal             string
	OrgType          string
	GrantDescription string
}

// BuildProposalPrompt собирает пользовательский промпт из входных данных.
func BuildProposalPrompt(in GenerateInput) string {
	var b strings.Builder
	b.WriteString("Write a comprehensive, professional grant proposal based on the following information:\n\n")
	fmt.Fprintf(&b, "**Grant Opportunity:** %s\n", in.GrantTitle)
	if strings.TrimSpace(in.GrantDescription) != "" {
		fmt.Fprintf(&b, "\n**Grant Description:** %s\n", in.GrantDescription)
	}
	fmt.Fprintf(&b, "\n**Organization Type:** %s\n", in.OrgType)
	fmt.Fprintf(&b, "\n**Project Goal/Idea:** %s\n", in.Goal)

	b.WriteString("\nThe proposal must contain exactly these sections, each as a heading:\n\n")
	for i, section := range ProposalSections {
		fmt.Fprintf(&b, "%d. **%s**\n", i+1, section)
	}

	b.WriteString(`
The proposal should be:
- Professional and well-structured
- Culturally sensitive and relevant to the region of the grant
- Clear, concise, and compelling
- Approximately 2000-2500 words in total

Generate the proposal now:`)
	return b.String()
}

// GenerateProposal запрашивает у модели черновик заявки. Один вызов, без повторов и кеша.
// Любая ошибка внешнего сервиса возвращается как GenerationFailed.
func (c *Client) GenerateProposal(ctx context.Context, in GenerateInput) (string, error) {
	messages := []chatMessage{
		{Role: "system", Content: proposalSystemPrompt},
		{Role: "user", Content: BuildProposalPrompt(in)},
	}

	text, err := c.chatCompletion(ctx, messages, ProposalMaxTokens, ProposalTemperature)
	if err != nil {
		return "", apperror.Wrap(err, apperror.ErrCodeGenerationFailed, apperror.ErrGenerationFailed.Message)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperror.Wrap(fmt.Errorf("ai: пустой текст заявки"), apperror.ErrCodeGenerationFailed, apperror.ErrGenerationFailed.Message)
	}
	return text, nil
}

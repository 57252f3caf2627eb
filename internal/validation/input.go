package validation

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/grantgenius/grantgenius-backend/internal/dto"
	"github.com/grantgenius/grantgenius-backend/internal/models"
	"github.com/grantgenius/grantgenius-backend/internal/pkg/apperror"
)

// Константы валидации
const (
	MinGrantDescriptionLength = 10
	MaxGrantTitleLength       = 300
	MaxGrantTextLength        = 20000
	MaxLinkLength             = 2048
	MinGoalLength             = 10
	MaxProposalTitleLength    = 300
)

// Collector копит ошибки по полям.
type Collector struct {
	details []apperror.FieldError
}

// Addf добавляет ошибку поля.
func (c *Collector) Addf(field, format string, args ...interface{}) {
	c.details = append(c.details, apperror.FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Err возвращает ошибку валидации либо nil.
func (c *Collector) Err() error {
	if len(c.details) == 0 {
		return nil
	}
	return apperror.Validation(c.details...)
}

// ValidateLength проверяет длину строки в символах.
func ValidateLength(c *Collector, field, value string, min, max int) {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		c.Addf(field, "должно быть не менее %d символов", min)
		return
	}
	if max > 0 && length > max {
		c.Addf(field, "должно быть не более %d символов", max)
	}
}

// ValidateNonEmpty проверяет, что строка не пустая после обрезки пробелов.
func ValidateNonEmpty(c *Collector, field, value string) bool {
	if strings.TrimSpace(value) == "" {
		c.Addf(field, "обязательное поле")
		return false
	}
	return true
}

// ParseDeadline разбирает дату дедлайна. Дата без времени трактуется как полночь UTC.
func ParseDeadline(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("ожидается дата в формате YYYY-MM-DD или RFC3339")
	}
	return t.UTC(), nil
}

// ValidateLink проверяет абсолютный http(s) URL.
func ValidateLink(value string) error {
	if len(value) > MaxLinkLength {
		return fmt.Errorf("ссылка длиннее %d символов", MaxLinkLength)
	}
	u, err := url.ParseRequestURI(value)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("ожидается корректный URL")
	}
	return nil
}

// ValidateGrantCreate проверяет поля нового гранта. Обязательны только
// title, description, category, region и fundingBody.
func ValidateGrantCreate(req dto.CreateGrantRequest) (models.GrantFields, error) {
	var c Collector
	fields := models.GrantFields{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		Region:      strings.TrimSpace(req.Region),
		FundingBody: strings.TrimSpace(req.FundingBody),
	}

	if ValidateNonEmpty(&c, "title", fields.Title) {
		ValidateLength(&c, "title", fields.Title, 0, MaxGrantTitleLength)
	}
	ValidateLength(&c, "description", fields.Description, MinGrantDescriptionLength, MaxGrantTextLength)
	ValidateNonEmpty(&c, "category", fields.Category)
	ValidateNonEmpty(&c, "region", fields.Region)
	ValidateNonEmpty(&c, "fundingBody", fields.FundingBody)

	if req.Amount != nil && strings.TrimSpace(*req.Amount) != "" {
		amount := strings.TrimSpace(*req.Amount)
		fields.Amount = &amount
	}
	if req.Deadline != nil && strings.TrimSpace(*req.Deadline) != "" {
		deadline, err := ParseDeadline(*req.Deadline)
		if err != nil {
			c.Addf("deadline", "%s", err.Error())
		} else {
			fields.Deadline = &deadline
		}
	}
	if req.Link != nil && strings.TrimSpace(*req.Link) != "" {
		link := strings.TrimSpace(*req.Link)
		if err := ValidateLink(link); err != nil {
			c.Addf("link", "%s", err.Error())
		} else {
			fields.Link = &link
		}
	}

	return fields, c.Err()
}

// ValidateGrantPatch применяет те же правила только к переданным полям.
// Пустые amount, deadline и link сбрасывают значение.
func ValidateGrantPatch(req dto.UpdateGrantRequest) (models.GrantPatch, error) {
	var c Collector
	var patch models.GrantPatch

	required := func(field string, value *string) *string {
		if value == nil {
			return nil
		}
		v := strings.TrimSpace(*value)
		if !ValidateNonEmpty(&c, field, v) {
			return nil
		}
		return &v
	}

	patch.Title = required("title", req.Title)
	if patch.Title != nil {
		ValidateLength(&c, "title", *patch.Title, 0, MaxGrantTitleLength)
	}
	if req.Description != nil {
		v := strings.TrimSpace(*req.Description)
		ValidateLength(&c, "description", v, MinGrantDescriptionLength, MaxGrantTextLength)
		patch.Description = &v
	}
	patch.Category = required("category", req.Category)
	patch.Region = required("region", req.Region)
	patch.FundingBody = required("fundingBody", req.FundingBody)

	if req.Amount != nil {
		if v := strings.TrimSpace(*req.Amount); v == "" {
			patch.ClearAmount = true
		} else {
			patch.Amount = &v
		}
	}
	if req.Deadline != nil {
		if strings.TrimSpace(*req.Deadline) == "" {
			patch.ClearDeadline = true
		} else if deadline, err := ParseDeadline(*req.Deadline); err != nil {
			c.Addf("deadline", "%s", err.Error())
		} else {
			patch.Deadline = &deadline
		}
	}
	if req.Link != nil {
		if v := strings.TrimSpace(*req.Link); v == "" {
			patch.ClearLink = true
		} else if err := ValidateLink(v); err != nil {
			c.Addf("link", "%s", err.Error())
		} else {
			patch.Link = &v
		}
	}
	patch.IsActive = req.IsActive

	if err := c.Err(); err != nil {
		return models.GrantPatch{}, err
	}
	if patch.IsEmpty() {
		c.Addf("body", "нет полей для обновления")
		return models.GrantPatch{}, c.Err()
	}
	return patch, nil
}

// ValidateGenerate проверяет запрос на генерацию поверх тегов binding:
// строки из одних пробелов тоже считаются пустыми.
func ValidateGenerate(req dto.GenerateProposalRequest) error {
	var c Collector
	ValidateNonEmpty(&c, "grantTitle", req.GrantTitle)
	ValidateLength(&c, "goal", strings.TrimSpace(req.Goal), MinGoalLength, 0)
	ValidateNonEmpty(&c, "orgType", req.OrgType)
	return c.Err()
}

// ValidateProposalPatch проверяет частичное обновление заявки.
func ValidateProposalPatch(req dto.UpdateProposalRequest) (models.ProposalPatch, error) {
	var c Collector
	if req.Title != nil {
		ValidateLength(&c, "title", *req.Title, 0, MaxProposalTitleLength)
	}
	if req.Status != nil && !models.IsValidProposalStatus(*req.Status) {
		c.Addf("status", "допустимые значения: DRAFT, COMPLETED, ARCHIVED")
	}
	if err := c.Err(); err != nil {
		return models.ProposalPatch{}, err
	}
	return models.ProposalPatch{
		Title:           req.Title,
		Content:         req.Content,
		Status:          req.Status,
		ExpectedVersion: req.Version,
	}, nil
}

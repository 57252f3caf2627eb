package dto

// RegisterRequest тело POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"max=100"`
}

// LoginRequest тело POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest тело POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// CreateGrantRequest тело POST /grants. Обязательные поля проверяются в validation,
// чтобы вернуть ошибки по всем полям сразу.
type CreateGrantRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Region      string  `json:"region"`
	FundingBody string  `json:"fundingBody"`
	Amount      *string `json:"amount"`
	Deadline    *string `json:"deadline"`
	Link        *string `json:"link"`
}

// UpdateGrantRequest тело PATCH /grants/:id. Отсутствующие поля не меняются.
type UpdateGrantRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Region      *string `json:"region"`
	FundingBody *string `json:"fundingBody"`
	Amount      *string `json:"amount"`
	Deadline    *string `json:"deadline"`
	Link        *string `json:"link"`
	IsActive    *bool   `json:"isActive"`
}

// GenerateProposalRequest тело POST /proposals/generate.
type GenerateProposalRequest struct {
	GrantTitle       string  `json:"grantTitle" binding:"required"`
	Goal             string  `json:"goal" binding:"required,min=10"`
	OrgType          string  `json:"orgType" binding:"required"`
	GrantID          *string `json:"grantId"`
	GrantDescription *string `json:"grantDescription"`
}

// UpdateProposalRequest тело PATCH /proposals/:id.
type UpdateProposalRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Status  *string `json:"status" binding:"omitempty,oneof=DRAFT COMPLETED ARCHIVED"`
	// Version ожидаемая версия; без неё запись выполняется по принципу last-writer-wins.
	Version *int64 `json:"version" binding:"omitempty,min=1"`
}

// AutosaveRequest тело POST /proposals/:id/autosave. Пустой content допустим.
type AutosaveRequest struct {
	Content *string `json:"content"`
	Version *int64  `json:"version" binding:"omitempty,min=1"`
}

package models

// UserRole константы ролей пользователей
const (
	UserRoleUser  = "USER"
	UserRoleAdmin = "ADMIN"
)

// ProposalStatus константы статусов заявок
const (
	ProposalStatusDraft     = "DRAFT"
	ProposalStatusCompleted = "COMPLETED"
	ProposalStatusArchived  = "ARCHIVED"
)

// ValidProposalStatuses список валидных статусов заявок
var ValidProposalStatuses = map[string]struct{}{
	ProposalStatusDraft:     {},
	ProposalStatusCompleted: {},
	ProposalStatusArchived:  {},
}

// IsValidProposalStatus проверяет, что статус входит в перечисление.
func IsValidProposalStatus(status string) bool {
	_, ok := ValidProposalStatuses[status]
	return ok
}

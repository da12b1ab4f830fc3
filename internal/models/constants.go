package models

// ProjectStatus константы статусов проектов (gig или job).
const (
	ProjectStatusOpen       = "open"
	ProjectStatusInProgress = "in_progress"
	ProjectStatusCompleted  = "completed"
	ProjectStatusCancelled  = "cancelled"
)

// ProjectType константы типов проектов.
const (
	ProjectTypeGig = "gig" // услуга, созданная фрилансером
	ProjectTypeJob = "job" // задание, созданное клиентом
)

// ProposalStatus константы статусов предложений.
const (
	ProposalStatusPending  = "pending"
	ProposalStatusAccepted = "accepted"
	ProposalStatusRejected = "rejected"
)

// OrderStatus константы статусов заказов.
const (
	OrderStatusPending    = "pending"
	OrderStatusPaid       = "paid"
	OrderStatusInProgress = "in_progress"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
	OrderStatusRefunded   = "refunded"
)

// Роли пользователей.
const (
	RoleClient     = "client"
	RoleFreelancer = "freelancer"
)

// ValidRoles список валидных ролей пользователей.
var ValidRoles = map[string]struct{}{
	RoleClient:     {},
	RoleFreelancer: {},
}

// ValidProjectTypes список валидных типов проектов.
var ValidProjectTypes = map[string]struct{}{
	ProjectTypeGig: {},
	ProjectTypeJob: {},
}

// ValidProjectStatuses список валидных статусов проектов.
var ValidProjectStatuses = map[string]struct{}{
	ProjectStatusOpen:       {},
	ProjectStatusInProgress: {},
	ProjectStatusCompleted:  {},
	ProjectStatusCancelled:  {},
}

// ValidProposalStatuses список валидных статусов предложений.
var ValidProposalStatuses = map[string]struct{}{
	ProposalStatusPending:  {},
	ProposalStatusAccepted: {},
	ProposalStatusRejected: {},
}

// ValidOrderStatuses список валидных статусов заказов.
var ValidOrderStatuses = map[string]struct{}{
	OrderStatusPending:    {},
	OrderStatusPaid:       {},
	OrderStatusInProgress: {},
	OrderStatusCompleted:  {},
	OrderStatusCancelled:  {},
	OrderStatusRefunded:   {},
}

// CanTransitionOrder проверяет допустимость перехода статуса заказа.
// pending → paid → in_progress → completed; pending → cancelled;
// paid/in_progress → refunded.
func CanTransitionOrder(from, to string) bool {
	transitions := map[string][]string{
		OrderStatusPending:    {OrderStatusPaid, OrderStatusCancelled},
		OrderStatusPaid:       {OrderStatusInProgress, OrderStatusCompleted, OrderStatusRefunded},
		OrderStatusInProgress: {OrderStatusCompleted, OrderStatusRefunded},
		OrderStatusCompleted:  {},
		OrderStatusCancelled:  {},
		OrderStatusRefunded:   {},
	}

	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CanTransitionProject проверяет допустимость перехода статуса проекта.
func CanTransitionProject(from, to string) bool {
	transitions := map[string][]string{
		ProjectStatusOpen:       {ProjectStatusInProgress, ProjectStatusCancelled},
		ProjectStatusInProgress: {ProjectStatusCompleted},
		ProjectStatusCompleted:  {},
		ProjectStatusCancelled:  {},
	}

	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

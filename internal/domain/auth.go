package domain

// AuthStep identifie l'étape visible du wizard d'autorisation.
// Les étapes s'excluent mutuellement; l'ordre n'est pas imposé.
type AuthStep string

const (
	AuthStepIntro   AuthStep = "1"
	AuthStepPending AuthStep = "2"
	AuthStepSuccess AuthStep = "3"
	AuthStepError   AuthStep = "error"
)

func (s AuthStep) IsTerminal() bool {
	return s == AuthStepSuccess || s == AuthStepError
}

package rabbitmq

// ExpenseRabbitMessage identifies a stalled expense attempt the
// reconciler consumer should resume.
type ExpenseRabbitMessage struct {
	ID string `json:"id"`
}

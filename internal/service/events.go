package service

// Event is the payload broadcast on an application's monitoring channel.
// Field names are the wire contract with the dashboard and student clients.
// Events are facts about already-committed state; clients treat them as a
// cue to recompute or re-fetch, never as speculative commands, so applying
// the same event twice is a no-op.
type Event struct {
	Type           string `json:"type"`
	AplicacaoID    uint   `json:"aplicacaoId"`
	SubmissaoID    string `json:"submissaoId,omitempty"`
	NovoEstado     string `json:"novoEstado,omitempty"`
	NovaDataFimISO string `json:"novaDataFimISO,omitempty"`
	Progresso      int    `json:"progresso,omitempty"`
	TipoInfracao   string `json:"tipoInfracao,omitempty"`
	EstudanteNome  string `json:"estudanteNome,omitempty"`
}

const (
	EventStateChanged       = "ESTADO_ALTERADO"
	EventTimeAdjusted       = "TEMPO_AJUSTADO"
	EventProgressUpdated    = "PROGRESSO_ATUALIZADO"
	EventDeliveryFinalized  = "ENTREGA_FINALIZADA"
	EventStudentLeft        = "ESTUDANTE_SAIU"
	EventViolationRecorded  = "INFRACAO_REGISTRADA"
)

// Broadcaster fans an event out to every client connected to an
// application's channel. Fire-and-forget: it must never block a state
// transition, and delivery is at least once.
type Broadcaster interface {
	BroadcastToApplication(applicationID uint, event Event)
}

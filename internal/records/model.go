package records

// Kind names an entity collection. The values double as the remote
// collection names and the local snapshot keys, matching the documents
// the PWA client already writes.
type Kind string

const (
	KindClient       Kind = "clients"
	KindServiceOrder Kind = "serviceOrders"
	KindUser         Kind = "users"
	KindRTI          Kind = "rtis"
)

// MaintenanceType distinguishes scheduled from repair visits.
type MaintenanceType string

const (
	MaintenancePreventive MaintenanceType = "Preventiva"
	MaintenanceCorrective MaintenanceType = "Corretiva"
)

// VerificationStatus is the outcome recorded for one checklist item.
type VerificationStatus string

const (
	VerificationOK        VerificationStatus = "OK"
	VerificationNoted     VerificationStatus = "OBS"
	VerificationUnderLoad VerificationStatus = "COM_CARGA"
)

// Generator describes one generator set owned by a client. Generators
// have no lifecycle of their own; they live and die with the parent
// Client record.
type Generator struct {
	ID              string `json:"id" firestore:"id"`
	EngineMake      string `json:"motor" firestore:"motor"`
	EngineModel     string `json:"modelo_motor" firestore:"modelo_motor"`
	EngineSerial    string `json:"serie_motor" firestore:"serie_motor"`
	GeneratorMake   string `json:"gerador" firestore:"gerador"`
	GeneratorModel  string `json:"modelo_gerador" firestore:"modelo_gerador"`
	GeneratorSerial string `json:"serie_gerador" firestore:"serie_gerador"`
	PanelCode       string `json:"usca,omitempty" firestore:"usca,omitempty"`
}

// Client is a customer site with its generator fleet. Name is unique
// within a store; the uniqueness is enforced at write time, not by the
// reconciliation engine.
type Client struct {
	ID          string      `json:"id" firestore:"-"`
	Name        string      `json:"nome" firestore:"nome"`
	Address     string      `json:"endereco" firestore:"endereco"`
	City        string      `json:"cidade" firestore:"cidade"`
	State       string      `json:"estado" firestore:"estado"`
	Phone       string      `json:"telefone" firestore:"telefone"`
	Email       string      `json:"email" firestore:"email"`
	SecondEmail string      `json:"email2,omitempty" firestore:"email2,omitempty"`
	Generators  []Generator `json:"geradores" firestore:"geradores"`
}

// Verification is one checklist entry inside a generator visit. The
// current readings are only meaningful when the status is COM_CARGA.
type Verification struct {
	Item           string             `json:"item" firestore:"item"`
	Status         VerificationStatus `json:"status" firestore:"status"`
	Note           string             `json:"observacao,omitempty" firestore:"observacao,omitempty"`
	CurrentR       string             `json:"corrente_r,omitempty" firestore:"corrente_r,omitempty"`
	CurrentS       string             `json:"corrente_s,omitempty" firestore:"corrente_s,omitempty"`
	CurrentT       string             `json:"corrente_t,omitempty" firestore:"corrente_t,omitempty"`
	CurrentOverall string             `json:"corrente_geral,omitempty" firestore:"corrente_geral,omitempty"`
}

// GeneratorVisit holds everything recorded against one generator during
// a service order: maintenance type, checklist, and free-form readings.
type GeneratorVisit struct {
	GeneratorID     string          `json:"gerador_id" firestore:"gerador_id"`
	MaintenanceType MaintenanceType `json:"tipo_manutencao" firestore:"tipo_manutencao"`
	PhaseRS         string          `json:"fase_r_s,omitempty" firestore:"fase_r_s,omitempty"`
	PhaseTR         string          `json:"fase_t_r,omitempty" firestore:"fase_t_r,omitempty"`
	PhaseTS         string          `json:"fase_t_s,omitempty" firestore:"fase_t_s,omitempty"`
	Frequency       string          `json:"frequencia,omitempty" firestore:"frequencia,omitempty"`
	KVA             string          `json:"kva,omitempty" firestore:"kva,omitempty"`
	BatteryStandby  string          `json:"tensao_bateria_standby,omitempty" firestore:"tensao_bateria_standby,omitempty"`
	BatteryCharging string          `json:"tensao_bateria_carregando,omitempty" firestore:"tensao_bateria_carregando,omitempty"`
	WaterTemp       string          `json:"temperatura_agua,omitempty" firestore:"temperatura_agua,omitempty"`
	OilPressure     string          `json:"pressao_oleo,omitempty" firestore:"pressao_oleo,omitempty"`
	FuelLevel       string          `json:"nivel_combustivel,omitempty" firestore:"nivel_combustivel,omitempty"`
	RuntimeHours    string          `json:"tempo_funcionamento,omitempty" firestore:"tempo_funcionamento,omitempty"`
	Verifications   []Verification  `json:"verificacoes" firestore:"verificacoes"`
	Notes           string          `json:"observacoes,omitempty" firestore:"observacoes,omitempty"`
}

// ServiceOrder is one technician visit to a client, covering one or
// more generators. The identifier may be local (untagged) or tagged
// with the remote document id once synchronized.
type ServiceOrder struct {
	ID             string           `json:"id" firestore:"-"`
	Technician     string           `json:"tecnico" firestore:"tecnico"`
	Date           string           `json:"data" firestore:"data"`
	ClientID       string           `json:"cliente_id" firestore:"cliente_id"`
	Visits         []GeneratorVisit `json:"geradores" firestore:"geradores"`
	GeneralNotes   string           `json:"observacoes_gerais,omitempty" firestore:"observacoes_gerais,omitempty"`
	Signature      string           `json:"assinatura,omitempty" firestore:"assinatura,omitempty"`
	Representative string           `json:"representante,omitempty" firestore:"representante,omitempty"`
	RTIID          string           `json:"rti_id,omitempty" firestore:"rti_id,omitempty"`
}

// ImageAttachment is metadata plus the inline data URL for an image
// attached to an internal technical report.
type ImageAttachment struct {
	ID          string `json:"id" firestore:"id"`
	Name        string `json:"name" firestore:"name"`
	URL         string `json:"url" firestore:"url"`
	Size        int64  `json:"size" firestore:"size"`
	ContentType string `json:"type" firestore:"type"`
	UploadDate  string `json:"uploadDate" firestore:"uploadDate"`
	Description string `json:"description,omitempty" firestore:"description,omitempty"`
}

// RTI is the internal technical report linked to a service order. It is
// never shown on the customer-facing document and has its own
// lifecycle, by convention at most one per order.
type RTI struct {
	ID              string            `json:"id" firestore:"-"`
	ServiceOrderID  string            `json:"service_order_id" firestore:"service_order_id"`
	Technician      string            `json:"tecnico" firestore:"tecnico"`
	CreatedDate     string            `json:"data_criacao" firestore:"data_criacao"`
	Problems        string            `json:"problemas_identificados" firestore:"problemas_identificados"`
	Solution        string            `json:"solucao_aplicada" firestore:"solucao_aplicada"`
	PartsUsed       string            `json:"pecas_utilizadas" firestore:"pecas_utilizadas"`
	Recommendations string            `json:"recomendacoes" firestore:"recomendacoes"`
	TechnicalNotes  string            `json:"detalhes_tecnicos,omitempty" firestore:"detalhes_tecnicos,omitempty"`
	TimeSpent       string            `json:"tempo_gasto,omitempty" firestore:"tempo_gasto,omitempty"`
	Images          []ImageAttachment `json:"images,omitempty" firestore:"images,omitempty"`
}

// User is a local account used only for session gating. The password
// is stored as a bcrypt hash; the plaintext never leaves the login
// handler.
type User struct {
	ID           string `json:"id" firestore:"-"`
	Name         string `json:"nome" firestore:"nome"`
	Username     string `json:"usuario" firestore:"usuario"`
	PasswordHash string `json:"senha_hash" firestore:"senha_hash"`
}

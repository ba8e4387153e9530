package state

import (
	"time"

	"catalogshell/client/internal/catalog"
	"catalogshell/client/internal/session"
)

// Тексты уведомлений, которые видит пользователь.
const (
	MsgRegisterSuccess  = "Registration successful!"
	MsgRegisterFailed   = "Registration failed: "
	MsgRegisterFallback = "Unknown error"
	MsgLoginFailed      = "Login failed: "
	MsgLoginFallback    = "Invalid credentials"
	MsgFetchFailed      = "Failed to fetch products"
	MsgCreateFailed     = "Failed to create product"
	MsgUpdateFailed     = "Failed to update product"
	MsgDeleteFailed     = "Failed to delete product"
)

// ErrorInfo описывает последнюю ошибку для UI и логов.
type ErrorInfo struct {
	Op               string
	UserMessage      string
	TechnicalMessage string
	OccurredAt       time.Time
}

// AppContext содержит всё состояние клиента. Изменяется только из event-loop.
type AppContext struct {
	Session     session.Session
	Credentials session.Credentials
	Products    []catalog.Product
	Draft       catalog.Draft
	LastError   *ErrorInfo
	State       State
	// InputSeq: последний номер ввода из UI, учтённый в Credentials или Draft.
	InputSeq uint64
	// ResetGen растёт, когда автомат сам меняет Credentials или Draft.
	ResetGen uint64
}

// NewAppContext создаёт AppContext с восстановленной сессией.
func NewAppContext(restored session.Session) *AppContext {
	return &AppContext{
		Session:     restored,
		Credentials: session.EmptyCredentials(),
		State:       StateStarting,
	}
}

// Snapshot: копия состояния, безопасная для передачи за пределы event-loop.
type Snapshot struct {
	State       State
	Session     session.Session
	Credentials session.Credentials
	Products    []catalog.Product
	Draft       catalog.Draft
	InputSeq    uint64
	ResetGen    uint64
}

func (ctx *AppContext) snapshot() Snapshot {
	draft := ctx.Draft
	if draft.EditID != nil {
		id := *draft.EditID
		draft.EditID = &id
	}
	return Snapshot{
		State:       ctx.State,
		Session:     ctx.Session,
		Credentials: ctx.Credentials,
		Products:    append([]catalog.Product(nil), ctx.Products...),
		Draft:       draft,
		InputSeq:    ctx.InputSeq,
		ResetGen:    ctx.ResetGen,
	}
}

func (ctx *AppContext) noteInput(seq uint64) {
	if seq > ctx.InputSeq {
		ctx.InputSeq = seq
	}
}

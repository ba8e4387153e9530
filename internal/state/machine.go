package state

import (
	"errors"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"catalogshell/client/internal/catalog"
	"catalogshell/client/internal/logging"
	"catalogshell/client/internal/session"
)

// State описывает состояние конечного автомата клиента.
type State string

const (
	StateStarting      State = "Starting"
	StateAnonymous     State = "Anonymous"
	StateAuthenticated State = "Authenticated"
	StateExiting       State = "Exiting"
)

// EventType представляет собой тип события из очереди state machine.
type EventType string

const (
	EventUILaunch             EventType = "UI_LAUNCH"
	EventUICredentialsChanged EventType = "UI_CREDENTIALS_CHANGED"
	EventUIClickLogin         EventType = "UI_CLICK_LOGIN"
	EventUIClickRegister      EventType = "UI_CLICK_REGISTER"
	EventUIClickLogout        EventType = "UI_CLICK_LOGOUT"
	EventUIDraftChanged       EventType = "UI_DRAFT_CHANGED"
	EventUISubmitProduct      EventType = "UI_SUBMIT_PRODUCT"
	EventUIBeginEdit          EventType = "UI_BEGIN_EDIT"
	EventUICancelEdit         EventType = "UI_CANCEL_EDIT"
	EventUIClickDelete        EventType = "UI_CLICK_DELETE"
	EventUIExit               EventType = "UI_EXIT"

	EventSysRegisterSuccess EventType = "SYS_REGISTER_SUCCESS"
	EventSysRegisterFailure EventType = "SYS_REGISTER_FAILURE"
	EventSysLoginSuccess    EventType = "SYS_LOGIN_SUCCESS"
	EventSysLoginFailure    EventType = "SYS_LOGIN_FAILURE"
	EventSysFetchSuccess    EventType = "SYS_FETCH_SUCCESS"
	EventSysFetchFailure    EventType = "SYS_FETCH_FAILURE"
	EventSysCreateSuccess   EventType = "SYS_CREATE_SUCCESS"
	EventSysCreateFailure   EventType = "SYS_CREATE_FAILURE"
	EventSysUpdateSuccess   EventType = "SYS_UPDATE_SUCCESS"
	EventSysUpdateFailure   EventType = "SYS_UPDATE_FAILURE"
	EventSysDeleteSuccess   EventType = "SYS_DELETE_SUCCESS"
	EventSysDeleteFailure   EventType = "SYS_DELETE_FAILURE"
)

// Event инкапсулирует событие очереди и произвольную полезную нагрузку.
type Event struct {
	Type    EventType
	Payload any
	TS      time.Time
}

// CredentialsPayload передаёт содержимое формы входа.
// Seq: номер ввода, присвоенный UI; растёт монотонно.
type CredentialsPayload struct {
	Credentials session.Credentials
	Seq         uint64
}

// DraftPayload передаёт поля формы товара; цель редактирования берётся из состояния.
type DraftPayload struct {
	Draft catalog.Draft
	Seq   uint64
}

// ProductPayload передаёт товар, выбранный для редактирования.
type ProductPayload struct {
	Product catalog.Product
}

// DeletePayload передаёт ID удаляемого товара.
type DeletePayload struct {
	ID int64
}

// AuthSuccessPayload содержит результат входа или регистрации.
type AuthSuccessPayload struct {
	Token string
	Role  session.Role
}

// ProductsPayload содержит свежий список товаров и токен, с которым он получен.
type ProductsPayload struct {
	Token    string
	Products []catalog.Product
}

// ResultPayload сообщает об исходе запроса.
// Message содержит текст сервера, TechnicalMessage содержит текст ошибки для лога.
type ResultPayload struct {
	Token            string
	Message          string
	TechnicalMessage string
}

// Callbacks содержит функции, вызываемые state machine для побочных эффектов.
// Start* вызываются в отдельных горутинах, остальные вызываются из event-loop.
type Callbacks struct {
	StartRegister  func(creds session.Credentials)
	StartLogin     func(username, password string)
	StartFetch     func(token string)
	StartCreate    func(token string, input catalog.Input)
	StartUpdate    func(token string, id int64, input catalog.Input)
	StartDelete    func(token string, id int64)
	SaveSession    func(s session.Session) error
	ClearSession   func() error
	Render         func(snap Snapshot)
	ShowAlert      func(message string)
	ShowNotice     func(message string)
	CleanupAndExit func()
}

// Machine инкапсулирует event-loop и текущее состояние клиента.
type Machine struct {
	ctx       *AppContext
	callbacks Callbacks
	logger    *logging.Logger
	events    chan Event
	priority  chan Event
	done      chan struct{}
	stopped   atomic.Bool
	loopOnce  sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// ErrMachineStopped возвращается при попытке отправить событие после остановки петли.
var ErrMachineStopped = errors.New("state machine stopped")

// NewMachine создаёт новый state machine в состоянии Starting.
func NewMachine(ctx *AppContext, logger *logging.Logger, callbacks Callbacks) *Machine {
	if ctx == nil {
		ctx = NewAppContext(session.Session{})
	}
	return &Machine{
		ctx:       ctx,
		callbacks: callbacks,
		logger:    logger,
		events:    make(chan Event, 64),
		priority:  make(chan Event, 8),
		done:      make(chan struct{}),
	}
}

// Start запускает event-loop в отдельной горутине.
func (m *Machine) Start() {
	m.loopOnce.Do(func() {
		go m.loopSafely()
	})
}

// Stop завершает event-loop.
func (m *Machine) Stop() {
	m.stopOnce.Do(func() {
		m.stopped.Store(true)
		close(m.done)
		close(m.priority)
		close(m.events)
	})
}

// WaitAsync ждёт завершения фоновых задач, запущенных state machine.
func (m *Machine) WaitAsync(timeout time.Duration) bool {
	if m == nil {
		return true
	}
	if timeout <= 0 {
		m.wg.Wait()
		return true
	}
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Dispatch отправляет событие в очередь state machine.
func (m *Machine) Dispatch(evt Event) (err error) {
	// Stop мог закрыть очередь между проверкой stopped и отправкой.
	defer func() {
		if recover() != nil {
			err = ErrMachineStopped
		}
	}()
	if m.stopped.Load() {
		return ErrMachineStopped
	}
	m.logger.Debugf("event queued: %s", evt.Type)
	ch := m.events
	if evt.Type == EventUIExit {
		ch = m.priority
	}
	select {
	case <-m.done:
		return ErrMachineStopped
	case ch <- evt:
		return nil
	default:
		// очередь заполнена: ждём, пока освободится место
		if m.stopped.Load() {
			return ErrMachineStopped
		}
		if m.safeSend(ch, evt) {
			return nil
		}
		return ErrMachineStopped
	}
}

func (m *Machine) loop() {
	for {
		if m.stopped.Load() {
			return
		}

		select {
		case evt, ok := <-m.priority:
			if !ok {
				return
			}
			m.handleEvent(evt)
			continue
		default:
		}

		select {
		case evt, ok := <-m.priority:
			if !ok {
				return
			}
			m.handleEvent(evt)
		case evt, ok := <-m.events:
			if !ok {
				return
			}
			m.handleEvent(evt)
		}
	}
}

func (m *Machine) loopSafely() {
	defer m.logPanic("state loop")
	m.loop()
}

func (m *Machine) handleEvent(evt Event) {
	if evt.TS.IsZero() {
		evt.TS = time.Now()
	}
	m.logger.Debugf("event handle: %s state=%s", evt.Type, m.ctx.State)
	if evt.Type == EventUIExit {
		m.transition(StateExiting)
		m.invokeCleanup()
		return
	}
	if m.ctx.State == StateExiting {
		return
	}
	if m.handleResult(evt) {
		return
	}

	switch m.ctx.State {
	case StateStarting:
		m.handleStarting(evt)
	case StateAnonymous:
		m.handleAnonymous(evt)
	case StateAuthenticated:
		m.handleAuthenticated(evt)
	default:
		m.logger.Debugf("state machine: unknown state %s", m.ctx.State)
	}
}

// handleResult обрабатывает ответы фоновых запросов. Они приходят в любом
// состоянии, потому что пользователь мог выйти, пока запрос был в пути.
func (m *Machine) handleResult(evt Event) bool {
	switch evt.Type {
	case EventSysRegisterSuccess:
		payload, _ := evt.Payload.(AuthSuccessPayload)
		m.onRegisterSuccess(payload)
	case EventSysRegisterFailure:
		payload, _ := evt.Payload.(ResultPayload)
		m.onAuthFailure("register", MsgRegisterFailed, MsgRegisterFallback, payload)
	case EventSysLoginSuccess:
		payload, _ := evt.Payload.(AuthSuccessPayload)
		m.onLoginSuccess(payload)
	case EventSysLoginFailure:
		payload, _ := evt.Payload.(ResultPayload)
		m.onAuthFailure("login", MsgLoginFailed, MsgLoginFallback, payload)
	case EventSysFetchSuccess:
		payload, _ := evt.Payload.(ProductsPayload)
		m.onFetchSuccess(payload)
	case EventSysFetchFailure:
		payload, _ := evt.Payload.(ResultPayload)
		m.onFetchFailure(payload)
	case EventSysCreateSuccess, EventSysUpdateSuccess, EventSysDeleteSuccess:
		payload, _ := evt.Payload.(ResultPayload)
		m.onMutationSuccess(evt.Type, payload)
	case EventSysCreateFailure:
		payload, _ := evt.Payload.(ResultPayload)
		m.onMutationFailure("create", MsgCreateFailed, payload)
	case EventSysUpdateFailure:
		payload, _ := evt.Payload.(ResultPayload)
		m.onMutationFailure("update", MsgUpdateFailed, payload)
	case EventSysDeleteFailure:
		payload, _ := evt.Payload.(ResultPayload)
		m.onMutationFailure("delete", MsgDeleteFailed, payload)
	default:
		return false
	}
	return true
}

func (m *Machine) handleStarting(evt Event) {
	switch evt.Type {
	case EventUILaunch:
		if m.ctx.Session.Authenticated() {
			m.logger.Infof("restored session (role=%q)", m.ctx.Session.Role)
			m.enterAuthenticated()
			return
		}
		m.transition(StateAnonymous)
	default:
		m.logger.Debugf("starting: ignored %s", evt.Type)
	}
}

func (m *Machine) handleAnonymous(evt Event) {
	switch evt.Type {
	case EventUICredentialsChanged:
		m.applyCredentials(evt)
		m.refreshUI()
	case EventUIClickLogin:
		m.applyCredentials(evt)
		m.refreshUI()
		m.invokeLogin()
	case EventUIClickRegister:
		m.applyCredentials(evt)
		m.refreshUI()
		m.invokeRegister()
	case EventUIClickLogout:
		m.logout()
	default:
		m.logger.Debugf("anonymous: ignored %s", evt.Type)
	}
}

func (m *Machine) handleAuthenticated(evt Event) {
	switch evt.Type {
	case EventUIClickLogout:
		m.logout()
	case EventUIDraftChanged:
		m.applyDraft(evt)
		m.refreshUI()
	case EventUISubmitProduct:
		m.applyDraft(evt)
		m.submitDraft()
	case EventUIBeginEdit:
		if payload, ok := evt.Payload.(ProductPayload); ok {
			m.beginEdit(payload.Product)
		}
	case EventUICancelEdit:
		m.cancelEdit()
	case EventUIClickDelete:
		if payload, ok := evt.Payload.(DeletePayload); ok {
			m.invokeDelete(payload.ID)
		}
	default:
		m.logger.Debugf("authenticated: ignored %s", evt.Type)
	}
}

func (m *Machine) transition(next State) {
	if m.ctx.State == next {
		m.refreshUI()
		return
	}
	prev := m.ctx.State
	m.ctx.State = next
	m.logger.Debugf("state transition %s → %s", prev, next)
	m.refreshUI()
}

// enterAuthenticated переводит автомат в Authenticated и загружает товары.
func (m *Machine) enterAuthenticated() {
	m.transition(StateAuthenticated)
	m.invokeFetch()
}

func (m *Machine) recordError(op, userMessage, technical string) {
	m.ctx.LastError = &ErrorInfo{
		Op:               op,
		UserMessage:      userMessage,
		TechnicalMessage: technical,
		OccurredAt:       time.Now(),
	}
	m.logger.Errorf("%s failed: %s", op, technical)
	m.showAlert(userMessage)
}

func (m *Machine) runAsync(fn func()) {
	if fn == nil {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.logPanic("async task")
		fn()
	}()
}

func (m *Machine) logPanic(scope string) {
	if r := recover(); r != nil {
		m.logger.Errorf("panic in %s: %v\n%s", scope, r, debug.Stack())
		panic(r)
	}
}

func (m *Machine) invokeCleanup() {
	if m.callbacks.CleanupAndExit != nil {
		m.callbacks.CleanupAndExit()
		return
	}
	if !m.stopped.Load() {
		go m.Stop()
	}
}

func (m *Machine) showAlert(message string) {
	if m.callbacks.ShowAlert != nil {
		m.callbacks.ShowAlert(message)
	} else {
		m.logger.Infof("alert: %s", message)
	}
}

func (m *Machine) showNotice(message string) {
	if m.callbacks.ShowNotice != nil {
		m.callbacks.ShowNotice(message)
	} else {
		m.logger.Infof("notice: %s", message)
	}
}

func (m *Machine) refreshUI() {
	if m.callbacks.Render != nil {
		m.callbacks.Render(m.ctx.snapshot())
	}
}

func (m *Machine) safeSend(ch chan Event, evt Event) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	ch <- evt
	return true
}

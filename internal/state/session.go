package state

import (
	"catalogshell/client/internal/session"
)

func (m *Machine) applyCredentials(evt Event) {
	if payload, ok := evt.Payload.(CredentialsPayload); ok {
		creds := payload.Credentials
		if creds.Role == session.RoleNone {
			creds.Role = session.RoleUser
		}
		m.ctx.Credentials = creds
		m.ctx.noteInput(payload.Seq)
	}
}

func (m *Machine) invokeLogin() {
	if m.callbacks.StartLogin == nil {
		return
	}
	username := m.ctx.Credentials.Username
	password := m.ctx.Credentials.Password
	m.runAsync(func() { m.callbacks.StartLogin(username, password) })
}

func (m *Machine) invokeRegister() {
	if m.callbacks.StartRegister == nil {
		return
	}
	creds := m.ctx.Credentials
	m.logger.Debugf("registering user %q", creds.Username)
	m.runAsync(func() { m.callbacks.StartRegister(creds) })
}

// onLoginSuccess сохраняет токен и роль вместе. Выбранная в форме роль остаётся.
func (m *Machine) onLoginSuccess(payload AuthSuccessPayload) {
	m.ctx.Session = session.Session{Token: payload.Token, Role: payload.Role}
	m.resetCredentials(m.ctx.Credentials.Role)
	m.persistSession()
	m.enterAuthenticated()
}

// onRegisterSuccess сохраняет только токен: роль из ответа регистрации не берётся.
func (m *Machine) onRegisterSuccess(payload AuthSuccessPayload) {
	m.ctx.Session.Token = payload.Token
	m.resetCredentials(session.RoleUser)
	m.persistSession()
	m.showNotice(MsgRegisterSuccess)
	m.enterAuthenticated()
}

// resetCredentials очищает имя и пароль в форме входа.
func (m *Machine) resetCredentials(role session.Role) {
	if role == session.RoleNone {
		role = session.RoleUser
	}
	m.ctx.Credentials = session.Credentials{Role: role}
	m.ctx.ResetGen++
}

func (m *Machine) onAuthFailure(op, prefix, fallback string, payload ResultPayload) {
	message := payload.Message
	if message == "" {
		message = fallback
	}
	technical := payload.TechnicalMessage
	if technical == "" {
		technical = op + " failed"
	}
	m.recordError(op, prefix+message, technical)
}

// logout очищает сессию и список товаров. Повторный вызов ничего не меняет.
func (m *Machine) logout() {
	m.ctx.Session = session.Session{}
	m.ctx.Products = nil
	if m.callbacks.ClearSession != nil {
		if err := m.callbacks.ClearSession(); err != nil {
			m.logger.Errorf("clear stored session: %v", err)
		}
	}
	m.transition(StateAnonymous)
}

func (m *Machine) persistSession() {
	if m.callbacks.SaveSession == nil {
		return
	}
	if err := m.callbacks.SaveSession(m.ctx.Session); err != nil {
		m.logger.Errorf("persist session: %v", err)
	}
}

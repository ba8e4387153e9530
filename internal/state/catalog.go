package state

import (
	"catalogshell/client/internal/catalog"
)

func (m *Machine) applyDraft(evt Event) {
	if payload, ok := evt.Payload.(DraftPayload); ok {
		m.ctx.Draft = m.ctx.Draft.WithFields(payload.Draft)
		m.ctx.noteInput(payload.Seq)
	}
}

func (m *Machine) beginEdit(p catalog.Product) {
	m.ctx.Draft = catalog.DraftFrom(p)
	m.ctx.ResetGen++
	m.refreshUI()
}

func (m *Machine) cancelEdit() {
	m.ctx.Draft = catalog.Draft{}
	m.ctx.ResetGen++
	m.refreshUI()
}

// submitDraft создаёт товар или обновляет редактируемый.
func (m *Machine) submitDraft() {
	draft := m.ctx.Draft
	op, failed := "create", MsgCreateFailed
	if draft.Editing() {
		op, failed = "update", MsgUpdateFailed
	}
	input, err := draft.Input()
	if err != nil {
		m.recordError(op, failed, err.Error())
		m.refreshUI()
		return
	}
	token := m.ctx.Session.Token
	if draft.Editing() {
		id := *draft.EditID
		if m.callbacks.StartUpdate != nil {
			m.runAsync(func() { m.callbacks.StartUpdate(token, id, input) })
		}
	} else if m.callbacks.StartCreate != nil {
		m.runAsync(func() { m.callbacks.StartCreate(token, input) })
	}
	m.refreshUI()
}

func (m *Machine) invokeDelete(id int64) {
	if m.callbacks.StartDelete == nil {
		return
	}
	token := m.ctx.Session.Token
	m.runAsync(func() { m.callbacks.StartDelete(token, id) })
}

func (m *Machine) invokeFetch() {
	if m.callbacks.StartFetch == nil || !m.ctx.Session.Authenticated() {
		return
	}
	token := m.ctx.Session.Token
	m.runAsync(func() { m.callbacks.StartFetch(token) })
}

// onFetchSuccess заменяет список целиком. Ответ для устаревшего токена отбрасывается.
func (m *Machine) onFetchSuccess(payload ProductsPayload) {
	if !m.currentToken(payload.Token) {
		m.logger.Debugf("fetch: dropped result for stale session")
		return
	}
	m.ctx.Products = append([]catalog.Product{}, payload.Products...)
	m.refreshUI()
}

// onFetchFailure оставляет прежний список на месте.
func (m *Machine) onFetchFailure(payload ResultPayload) {
	if !m.currentToken(payload.Token) {
		m.logger.Debugf("fetch: dropped failure for stale session")
		return
	}
	m.recordError("fetch", MsgFetchFailed, technicalOrDefault(payload, "fetch failed"))
}

// onMutationSuccess сбрасывает черновик (для create/update) и перечитывает список.
func (m *Machine) onMutationSuccess(t EventType, payload ResultPayload) {
	switch t {
	case EventSysCreateSuccess, EventSysUpdateSuccess:
		m.ctx.Draft = catalog.Draft{}
		m.ctx.ResetGen++
	}
	m.refreshUI()
	if m.ctx.State == StateAuthenticated && m.currentToken(payload.Token) {
		m.invokeFetch()
	}
}

func (m *Machine) onMutationFailure(op, message string, payload ResultPayload) {
	m.recordError(op, message, technicalOrDefault(payload, op+" failed"))
}

func (m *Machine) currentToken(token string) bool {
	return m.ctx.Session.Authenticated() && token == m.ctx.Session.Token
}

func technicalOrDefault(payload ResultPayload, fallback string) string {
	if payload.TechnicalMessage != "" {
		return payload.TechnicalMessage
	}
	return fallback
}

package app

import (
	"context"
	"time"

	"catalogshell/client/internal/apiclient"
	"catalogshell/client/internal/catalog"
	"catalogshell/client/internal/session"
	"catalogshell/client/internal/state"
)

func (a *Application) startRegister(creds session.Credentials) {
	if a.isStopping() {
		return
	}
	ctx, cancel := a.requestContext()
	defer cancel()
	res, err := a.api.Register(ctx, creds)
	if err != nil {
		a.report(state.EventSysRegisterFailure, failurePayload("", err))
		return
	}
	a.logger.Infof("registered user %q", creds.Username)
	a.report(state.EventSysRegisterSuccess, state.AuthSuccessPayload{Token: res.Token, Role: res.Role})
}

func (a *Application) startLogin(username, password string) {
	if a.isStopping() {
		return
	}
	ctx, cancel := a.requestContext()
	defer cancel()
	res, err := a.api.Login(ctx, username, password)
	if err != nil {
		a.report(state.EventSysLoginFailure, failurePayload("", err))
		return
	}
	a.logger.Infof("login succeeded (role=%q)", res.Role)
	a.report(state.EventSysLoginSuccess, state.AuthSuccessPayload{Token: res.Token, Role: res.Role})
}

func (a *Application) startFetch(token string) {
	if a.isStopping() {
		return
	}
	ctx, cancel := a.requestContext()
	defer cancel()
	products, err := a.api.ListProducts(ctx, token)
	if err != nil {
		a.report(state.EventSysFetchFailure, failurePayload(token, err))
		return
	}
	a.logger.Debugf("fetched %d products", len(products))
	a.report(state.EventSysFetchSuccess, state.ProductsPayload{Token: token, Products: products})
}

func (a *Application) startCreate(token string, input catalog.Input) {
	a.mutate(token, state.EventSysCreateSuccess, state.EventSysCreateFailure, func(ctx context.Context) error {
		return a.api.CreateProduct(ctx, token, input)
	})
}

func (a *Application) startUpdate(token string, id int64, input catalog.Input) {
	a.mutate(token, state.EventSysUpdateSuccess, state.EventSysUpdateFailure, func(ctx context.Context) error {
		return a.api.UpdateProduct(ctx, token, id, input)
	})
}

func (a *Application) startDelete(token string, id int64) {
	a.mutate(token, state.EventSysDeleteSuccess, state.EventSysDeleteFailure, func(ctx context.Context) error {
		return a.api.DeleteProduct(ctx, token, id)
	})
}

func (a *Application) mutate(token string, success, failure state.EventType, call func(ctx context.Context) error) {
	if a.isStopping() {
		return
	}
	ctx, cancel := a.requestContext()
	defer cancel()
	if err := call(ctx); err != nil {
		a.report(failure, failurePayload(token, err))
		return
	}
	a.report(success, state.ResultPayload{Token: token})
}

func failurePayload(token string, err error) state.ResultPayload {
	return state.ResultPayload{
		Token:            token,
		Message:          apiclient.ServerMessage(err),
		TechnicalMessage: err.Error(),
	}
}

// report отправляет результат в state machine, если приложение ещё работает.
func (a *Application) report(t state.EventType, payload any) {
	if a.isStopping() {
		a.logger.Debugf("drop %s: application is stopping", t)
		return
	}
	_ = a.dispatch(state.Event{Type: t, Payload: payload, TS: time.Now()})
}

// requestContext ограничивает запрос временем жизни приложения и request_timeout.
func (a *Application) requestContext() (context.Context, context.CancelFunc) {
	parent := context.Background()
	if a.runCtx != nil {
		parent = a.runCtx
	}
	if a.cfg != nil && a.cfg.RequestTimeout > 0 {
		return context.WithTimeout(parent, a.cfg.RequestTimeout)
	}
	return context.WithCancel(parent)
}

func (a *Application) isStopping() bool {
	if a.runCtx == nil {
		return false
	}
	select {
	case <-a.runCtx.Done():
		return true
	default:
		return false
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"catalogshell/client/internal/apiclient"
	"catalogshell/client/internal/config"
	"catalogshell/client/internal/logging"
	"catalogshell/client/internal/session"
	"catalogshell/client/internal/state"
	"catalogshell/client/internal/ui"
)

// Renderer отображает состояние клиента и уведомления.
type Renderer interface {
	Render(snap state.Snapshot)
	ShowAlert(message string)
	ShowNotice(message string)
}

// Deps позволяет подменить окружение приложения в тестах.
type Deps struct {
	Renderer   Renderer
	Store      session.Store
	HTTPClient *http.Client
}

// Application связывает state machine, API каталога, хранилище сессии и UI.
type Application struct {
	cfg       *config.Config
	logger    *logging.Logger
	api       *apiclient.Client
	store     session.Store
	machine   *state.Machine
	ctx       *state.AppContext
	renderer  Renderer
	ui        *ui.Manager
	shutdown  chan struct{}
	runCtx    context.Context
	runCancel context.CancelFunc
	stopOnce  sync.Once
}

// New создаёт Application с окном Fyne и хранилищем сессии из конфигурации.
func New(cfg *config.Config, logger *logging.Logger) (*Application, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	a := &Application{}
	uiManager := ui.NewManager(ui.Options{
		AppID:    "catalogshell.client",
		AppName:  "Ecommerce App",
		Logger:   logger,
		Dispatch: a.dispatch,
	})
	var store session.Store
	switch cfg.SessionStore {
	case config.SessionStoreFile:
		store = session.NewFileStore(cfg.SessionFile)
	default:
		store = session.NewPreferencesStore(uiManager.App().Preferences())
	}
	a.ui = uiManager
	if err := a.init(cfg, logger, Deps{Renderer: uiManager, Store: store}); err != nil {
		return nil, err
	}
	return a, nil
}

// NewWithDeps создаёт Application без окна: отрисовкой занимается deps.Renderer.
func NewWithDeps(cfg *config.Config, logger *logging.Logger, deps Deps) (*Application, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	a := &Application{}
	if err := a.init(cfg, logger, deps); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Application) init(cfg *config.Config, logger *logging.Logger, deps Deps) error {
	if logger == nil {
		return errors.New("logger is nil")
	}
	if deps.Renderer == nil {
		return errors.New("renderer is nil")
	}
	if deps.Store == nil {
		return errors.New("session store is nil")
	}
	client, err := apiclient.New(cfg.APIBaseURL, apiclient.Options{
		HTTPClient: deps.HTTPClient,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("init api client: %w", err)
	}
	restored, err := session.Restore(deps.Store)
	if err != nil {
		logger.Errorf("restore session: %v", err)
		restored = session.Session{}
	}
	runCtx, runCancel := context.WithCancel(logging.WithContext(context.Background(), logger))

	a.cfg = cfg
	a.logger = logger
	a.api = client
	a.store = deps.Store
	a.renderer = deps.Renderer
	a.ctx = state.NewAppContext(restored)
	a.shutdown = make(chan struct{})
	a.runCtx = runCtx
	a.runCancel = runCancel
	a.machine = state.NewMachine(a.ctx, logger, state.Callbacks{
		StartRegister:  a.startRegister,
		StartLogin:     a.startLogin,
		StartFetch:     a.startFetch,
		StartCreate:    a.startCreate,
		StartUpdate:    a.startUpdate,
		StartDelete:    a.startDelete,
		SaveSession:    a.store.Save,
		ClearSession:   a.store.Clear,
		Render:         a.renderer.Render,
		ShowAlert:      a.renderer.ShowAlert,
		ShowNotice:     a.renderer.ShowNotice,
		CleanupAndExit: a.cleanupAndExit,
	})
	return nil
}

// Run запускает state machine и инициирует сценарий старта.
func (a *Application) Run() error {
	if a.machine == nil {
		return errors.New("machine is not initialized")
	}
	if a.ui != nil {
		a.ui.Start()
	}
	a.machine.Start()
	return a.dispatch(state.Event{Type: state.EventUILaunch, TS: time.Now()})
}

// RunUILoop запускает главный цикл Fyne и блокирует вызывающую горутину до выхода.
func (a *Application) RunUILoop() {
	if a.ui == nil {
		return
	}
	a.ui.RunMainLoop()
}

// Dispatch передаёт событие в state machine.
func (a *Application) Dispatch(evt state.Event) error {
	return a.dispatch(evt)
}

// Stop отменяет запросы в полёте и останавливает state machine.
func (a *Application) Stop() {
	a.stopOnce.Do(func() {
		if a.runCancel != nil {
			a.runCancel()
		}
		if a.ui != nil {
			a.ui.Shutdown()
			if !a.ui.WaitAsync(3 * time.Second) {
				a.logger.Errorf("ui background tasks did not finish before timeout")
			}
		}
		if a.machine != nil {
			a.machine.Stop()
			if !a.machine.WaitAsync(3 * time.Second) {
				a.logger.Errorf("state machine background tasks did not finish before timeout")
			}
		}
		close(a.shutdown)
	})
}

func (a *Application) dispatch(evt state.Event) error {
	if a.machine == nil {
		return state.ErrMachineStopped
	}
	if err := a.machine.Dispatch(evt); err != nil {
		a.logger.Errorf("dispatch %s failed: %v", evt.Type, err)
		return err
	}
	return nil
}

// Done возвращает канал, закрывающийся после полной остановки приложения.
func (a *Application) Done() <-chan struct{} {
	return a.shutdown
}

func (a *Application) cleanupAndExit() {
	a.logger.Infof("state machine requested shutdown")
	// Stop ждёт фоновые задачи машины, поэтому из event-loop его вызывать нельзя.
	go a.Stop()
}

package ui

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"catalogshell/client/internal/catalog"
	"catalogshell/client/internal/logging"
	"catalogshell/client/internal/session"
	"catalogshell/client/internal/state"
	"catalogshell/client/internal/view"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

// Options описывает параметры инициализации UI Manager.
type Options struct {
	AppID    string
	AppName  string
	Logger   *logging.Logger
	Dispatch func(state.Event) error
	// App позволяет передать готовое fyne-приложение (например, из fyne.io/fyne/v2/test).
	App fyne.App
}

// Manager управляет окном Fyne и связывает его со state machine.
type Manager struct {
	app      fyne.App
	appName  string
	logger   *logging.Logger
	dispatch func(state.Event) error
	win      fyne.Window
	page     view.Page
	pageSet  bool

	authContent   fyne.CanvasObject
	usernameEntry *widget.Entry
	passwordEntry *widget.Entry
	roleSelect    *widget.Select
	loginBtn      *widget.Button
	registerBtn   *widget.Button
	auth          view.Auth

	productsContent  fyne.CanvasObject
	logoutBtn        *widget.Button
	formHeading      *widget.Label
	nameEntry        *widget.Entry
	descriptionEntry *widget.Entry
	priceEntry       *widget.Entry
	quantityEntry    *widget.Entry
	submitBtn        *widget.Button
	cancelBtn        *widget.Button
	productList      *widget.List
	items            []view.Item

	suppressEvents bool
	// inputSeq: номер последнего ввода, отправленного в state machine.
	inputSeq uint64
	// resetGen: последний применённый сброс формы со стороны автомата.
	resetGen uint64
	updateCh       chan view.View
	stopCh         chan struct{}
	runOnce        sync.Once
	shutdownOnce   sync.Once
	wg             sync.WaitGroup
}

// NewManager создаёт новый UI Manager.
func NewManager(opts Options) *Manager {
	appID := strings.TrimSpace(opts.AppID)
	if appID == "" {
		appID = "catalogshell.client"
	}
	name := strings.TrimSpace(opts.AppName)
	if name == "" {
		name = view.TitleAuth
	}
	fyneApp := opts.App
	if fyneApp == nil {
		fyneApp = fyneapp.NewWithID(appID)
	}
	fyneApp.Settings().SetTheme(newCatalogTheme())
	m := &Manager{
		app:      fyneApp,
		appName:  name,
		logger:   opts.Logger,
		dispatch: opts.Dispatch,
		updateCh: make(chan view.View, 16),
		stopCh:   make(chan struct{}),
	}
	m.buildWindow()
	return m
}

// App возвращает fyne-приложение; из него берутся Preferences для хранения сессии.
func (m *Manager) App() fyne.App {
	return m.app
}

// Start запускает фоновую goroutine обновлений UI.
func (m *Manager) Start() {
	m.runOnce.Do(func() {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.processUpdates()
		}()
	})
}

// RunMainLoop блокирует текущую горутину до завершения цикла Fyne.
func (m *Manager) RunMainLoop() {
	if m.win != nil {
		m.win.Show()
	}
	m.app.Run()
}

// Shutdown останавливает обновления и закрывает Fyne-приложение.
func (m *Manager) Shutdown() {
	m.shutdownOnce.Do(func() {
		close(m.stopCh)
		m.callOnUI(func() {
			if m.win != nil {
				m.win.Close()
			}
			m.app.Quit()
		})
	})
}

// WaitAsync ждёт завершения фоновых UI goroutine.
func (m *Manager) WaitAsync(timeout time.Duration) bool {
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

// Render строит экран из снимка и передаёт его в goroutine UI.
// Если очередь заполнена, устаревший экран выбрасывается.
func (m *Manager) Render(snap state.Snapshot) {
	v := view.Build(snap)
	select {
	case <-m.stopCh:
		return
	case m.updateCh <- v:
	default:
		select {
		case <-m.updateCh:
		default:
		}
		select {
		case m.updateCh <- v:
		default:
		}
	}
}

// ShowAlert отображает модальное окно ошибки.
func (m *Manager) ShowAlert(message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		return
	}
	m.callOnUI(func() {
		dialog.ShowError(errors.New(message), m.win)
	})
}

// ShowNotice отображает информационное окно.
func (m *Manager) ShowNotice(message string) {
	if strings.TrimSpace(message) == "" {
		return
	}
	m.callOnUI(func() {
		dialog.ShowInformation(m.appName, message, m.win)
	})
}

func (m *Manager) processUpdates() {
	for {
		select {
		case <-m.stopCh:
			return
		case v := <-m.updateCh:
			m.callOnUI(func() { m.applyView(v) })
		}
	}
}

// applyView должен вызываться в goroutine Fyne.
// Текст полей берётся из экрана, только если экран учёл весь отправленный
// ввод или автомат сам сбросил форму.
func (m *Manager) applyView(v view.View) {
	pageChanged := !m.pageSet || m.page != v.Page
	reset := v.ResetGen != m.resetGen
	m.resetGen = v.ResetGen
	fields := pageChanged || reset || v.InputSeq >= m.inputSeq

	m.suppressEvents = true
	if pageChanged {
		m.page = v.Page
		m.pageSet = true
		if v.Page == view.PageAuth {
			m.win.SetContent(m.authContent)
		} else {
			m.win.SetContent(m.productsContent)
		}
	}
	m.win.SetTitle(v.Title)

	switch v.Page {
	case view.PageAuth:
		m.updateAuth(v.Auth, fields)
	case view.PageProducts:
		m.updateForm(v.Form, fields)
		m.items = v.Items
		m.productList.Refresh()
	}
	m.suppressEvents = false

	// Ввод, отправленный до сброса, автомат применит поверх него:
	// отправляем содержимое полей заново.
	if reset && v.InputSeq < m.inputSeq {
		m.resendInput(v.Page)
	}
}

func (m *Manager) updateAuth(a view.Auth, fields bool) {
	m.auth = a
	labels := make([]string, 0, len(a.RoleOptions))
	for _, opt := range a.RoleOptions {
		labels = append(labels, opt.Label)
	}
	if !slices.Equal(m.roleSelect.Options, labels) {
		m.roleSelect.SetOptions(labels)
	}
	if !fields {
		return
	}
	setText(m.usernameEntry, a.Username)
	setText(m.passwordEntry, a.Password)
	if m.roleSelect.Selected != a.SelectedRole {
		m.roleSelect.SetSelected(a.SelectedRole)
	}
}

func (m *Manager) updateForm(f view.Form, fields bool) {
	m.formHeading.SetText(f.Heading)
	m.submitBtn.SetText(f.SubmitLabel)
	if f.ShowCancel {
		m.cancelBtn.Show()
	} else {
		m.cancelBtn.Hide()
	}
	if !fields {
		return
	}
	setText(m.nameEntry, f.Draft.Name)
	setText(m.descriptionEntry, f.Draft.Description)
	setText(m.priceEntry, f.Draft.Price)
	setText(m.quantityEntry, f.Draft.Quantity)
}

func setText(entry *widget.Entry, text string) {
	if entry.Text != text {
		entry.SetText(text)
	}
}

func (m *Manager) buildWindow() {
	m.suppressEvents = true
	defer func() { m.suppressEvents = false }()
	win := m.app.NewWindow(m.appName)
	win.Resize(fyne.NewSize(720, 640))
	win.CenterOnScreen()
	m.win = win
	m.authContent = m.buildAuthContent()
	m.productsContent = m.buildProductsContent()
	win.SetContent(m.authContent)
	win.SetCloseIntercept(func() {
		m.sendSimpleEvent(state.EventUIExit)
	})
}

func (m *Manager) buildAuthContent() fyne.CanvasObject {
	title := widget.NewLabelWithStyle(view.TitleAuth, fyne.TextAlignLeading, fyne.TextStyle{Bold: true})

	m.usernameEntry = widget.NewEntry()
	m.usernameEntry.SetPlaceHolder("Username")
	m.usernameEntry.OnChanged = func(string) { m.handleCredentialsEdited() }
	m.usernameEntry.OnSubmitted = func(string) { m.handleAuthClicked(state.EventUIClickLogin) }

	m.passwordEntry = widget.NewPasswordEntry()
	m.passwordEntry.SetPlaceHolder("Password")
	m.passwordEntry.OnChanged = func(string) { m.handleCredentialsEdited() }
	m.passwordEntry.OnSubmitted = func(string) { m.handleAuthClicked(state.EventUIClickLogin) }

	m.roleSelect = widget.NewSelect(nil, func(string) { m.handleCredentialsEdited() })

	m.loginBtn = widget.NewButton("Login", func() { m.handleAuthClicked(state.EventUIClickLogin) })
	m.loginBtn.Importance = widget.HighImportance
	m.registerBtn = widget.NewButton("Register", func() { m.handleAuthClicked(state.EventUIClickRegister) })

	fields := container.NewVBox(
		widget.NewLabelWithStyle("Username", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		m.usernameEntry,
		widget.NewLabelWithStyle("Password", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		m.passwordEntry,
		widget.NewLabelWithStyle("Role", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		m.roleSelect,
	)
	actions := container.NewGridWithColumns(2, m.loginBtn, m.registerBtn)
	return container.NewPadded(container.NewVBox(title, fields, actions, layout.NewSpacer()))
}

func (m *Manager) buildProductsContent() fyne.CanvasObject {
	title := widget.NewLabelWithStyle(view.TitleProducts, fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	m.logoutBtn = widget.NewButton("Logout", func() { m.sendSimpleEvent(state.EventUIClickLogout) })
	header := container.NewHBox(title, layout.NewSpacer(), m.logoutBtn)

	m.formHeading = widget.NewLabelWithStyle(view.HeadingAdd, fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	m.nameEntry = m.newDraftEntry("Name")
	m.descriptionEntry = m.newDraftEntry("Description")
	m.priceEntry = m.newDraftEntry("Price")
	m.quantityEntry = m.newDraftEntry("Quantity")

	m.submitBtn = widget.NewButton(view.SubmitCreate, m.handleSubmit)
	m.submitBtn.Importance = widget.HighImportance
	m.cancelBtn = widget.NewButton("Cancel", func() { m.sendSimpleEvent(state.EventUICancelEdit) })
	m.cancelBtn.Hide()

	form := container.NewVBox(
		m.formHeading,
		m.nameEntry,
		m.descriptionEntry,
		container.NewGridWithColumns(2, m.priceEntry, m.quantityEntry),
		container.NewHBox(m.submitBtn, m.cancelBtn),
		widget.NewSeparator(),
	)

	m.productList = widget.NewList(
		func() int { return len(m.items) },
		newItemRow,
		m.updateItemRow,
	)

	top := container.NewVBox(header, form)
	return container.NewPadded(container.NewBorder(top, nil, nil, nil, m.productList))
}

func (m *Manager) newDraftEntry(placeholder string) *widget.Entry {
	entry := widget.NewEntry()
	entry.SetPlaceHolder(placeholder)
	entry.OnChanged = func(string) { m.handleDraftEdited() }
	return entry
}

func newItemRow() fyne.CanvasObject {
	name := widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	details := widget.NewLabel("")
	details.Wrapping = fyne.TextWrapWord
	summary := widget.NewLabel("")
	edit := widget.NewButton("Edit", nil)
	del := widget.NewButton("Delete", nil)
	del.Importance = widget.DangerImportance
	return container.NewVBox(name, details, summary, container.NewHBox(edit, del))
}

func (m *Manager) updateItemRow(id widget.ListItemID, obj fyne.CanvasObject) {
	box := obj.(*fyne.Container)
	name := box.Objects[0].(*widget.Label)
	details := box.Objects[1].(*widget.Label)
	summary := box.Objects[2].(*widget.Label)
	actions := box.Objects[3].(*fyne.Container)
	edit := actions.Objects[0].(*widget.Button)
	del := actions.Objects[1].(*widget.Button)
	if id < 0 || id >= len(m.items) {
		name.SetText("")
		details.SetText("")
		summary.SetText("")
		edit.Hide()
		del.Hide()
		return
	}
	item := m.items[id]
	name.SetText(item.Title)
	details.SetText(item.Details)
	summary.SetText(item.Summary)
	product := item.Product
	edit.OnTapped = func() { m.handleEdit(product) }
	del.OnTapped = func() { m.handleDelete(product.ID) }
	showIf(edit, item.ShowEdit)
	showIf(del, item.ShowDelete)
}

func showIf(obj fyne.CanvasObject, visible bool) {
	if visible {
		obj.Show()
	} else {
		obj.Hide()
	}
}

func (m *Manager) credentials() session.Credentials {
	return session.Credentials{
		Username: m.usernameEntry.Text,
		Password: m.passwordEntry.Text,
		Role:     m.auth.RoleFor(m.roleSelect.Selected),
	}
}

func (m *Manager) draft() catalog.Draft {
	return catalog.Draft{
		Name:        m.nameEntry.Text,
		Description: m.descriptionEntry.Text,
		Price:       m.priceEntry.Text,
		Quantity:    m.quantityEntry.Text,
	}
}

func (m *Manager) nextSeq() uint64 {
	m.inputSeq++
	return m.inputSeq
}

func (m *Manager) resendInput(page view.Page) {
	if page == view.PageAuth {
		m.handleCredentialsEdited()
		return
	}
	m.handleDraftEdited()
}

func (m *Manager) handleCredentialsEdited() {
	if m.suppressEvents {
		return
	}
	payload := state.CredentialsPayload{Credentials: m.credentials(), Seq: m.nextSeq()}
	m.dispatchEvent(state.Event{Type: state.EventUICredentialsChanged, Payload: payload, TS: time.Now()})
}

func (m *Manager) handleAuthClicked(t state.EventType) {
	payload := state.CredentialsPayload{Credentials: m.credentials(), Seq: m.nextSeq()}
	m.dispatchEvent(state.Event{Type: t, Payload: payload, TS: time.Now()})
}

func (m *Manager) handleDraftEdited() {
	if m.suppressEvents {
		return
	}
	payload := state.DraftPayload{Draft: m.draft(), Seq: m.nextSeq()}
	m.dispatchEvent(state.Event{Type: state.EventUIDraftChanged, Payload: payload, TS: time.Now()})
}

func (m *Manager) handleSubmit() {
	payload := state.DraftPayload{Draft: m.draft(), Seq: m.nextSeq()}
	m.dispatchEvent(state.Event{Type: state.EventUISubmitProduct, Payload: payload, TS: time.Now()})
}

func (m *Manager) handleEdit(p catalog.Product) {
	m.dispatchEvent(state.Event{Type: state.EventUIBeginEdit, Payload: state.ProductPayload{Product: p}, TS: time.Now()})
}

func (m *Manager) handleDelete(id int64) {
	m.dispatchEvent(state.Event{Type: state.EventUIClickDelete, Payload: state.DeletePayload{ID: id}, TS: time.Now()})
}

func (m *Manager) sendSimpleEvent(t state.EventType) {
	m.dispatchEvent(state.Event{Type: t, TS: time.Now()})
}

func (m *Manager) dispatchEvent(evt state.Event) {
	if m.dispatch == nil {
		return
	}
	if err := m.dispatch(evt); err != nil {
		m.logger.Errorf("ui dispatch %s failed: %v", evt.Type, err)
	}
}

func (m *Manager) callOnUI(fn func()) {
	if fn == nil {
		return
	}
	if drv := m.app.Driver(); drv != nil {
		drv.DoFromGoroutine(fn, true)
		return
	}
	fn()
}

// Package view строит описание экрана из снимка состояния.
// Пакет не зависит от fyne, поэтому правила отображения проверяются без графики.
package view

import (
	"strconv"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"catalogshell/client/internal/catalog"
	"catalogshell/client/internal/session"
	"catalogshell/client/internal/state"
)

// Page определяет, какой экран показывается.
type Page int

const (
	PageAuth Page = iota
	PageProducts
)

const (
	TitleAuth     = "Ecommerce App"
	TitleProducts = "Product Management"

	HeadingAdd  = "Add Product"
	HeadingEdit = "Edit Product"

	SubmitCreate = "Create"
	SubmitUpdate = "Update"
)

// RoleOption: пункт выбора роли в форме регистрации.
type RoleOption struct {
	Role  session.Role
	Label string
}

// Auth описывает экран входа.
type Auth struct {
	Username     string
	Password     string
	RoleOptions  []RoleOption
	SelectedRole string
}

// Form описывает форму товара.
type Form struct {
	Heading     string
	SubmitLabel string
	ShowCancel  bool
	Draft       catalog.Draft
}

// Item: строка списка товаров.
type Item struct {
	Product    catalog.Product
	Title      string
	Details    string
	Summary    string
	ShowEdit   bool
	ShowDelete bool
}

// View: полное описание того, что должно быть на экране.
// InputSeq и ResetGen позволяют UI отличить устаревший текст полей
// от сброса формы автоматом.
type View struct {
	Page     Page
	Title    string
	Auth     Auth
	Form     Form
	Items    []Item
	InputSeq uint64
	ResetGen uint64
}

// RoleLabel возвращает подпись роли для выпадающего списка.
func RoleLabel(r session.Role) string {
	return cases.Title(language.English).String(string(r))
}

// RoleOptions возвращает варианты ролей формы регистрации.
func RoleOptions() []RoleOption {
	out := make([]RoleOption, 0, len(session.Roles))
	for _, r := range session.Roles {
		out = append(out, RoleOption{Role: r, Label: RoleLabel(r)})
	}
	return out
}

// RoleFor находит роль по подписи среди вариантов экрана. Неизвестная подпись даёт USER.
func (a Auth) RoleFor(label string) session.Role {
	for _, opt := range a.RoleOptions {
		if opt.Label == label {
			return opt.Role
		}
	}
	return session.RoleUser
}

// Build строит экран. Без токена всегда экран входа; действия
// редактирования и удаления есть только у ADMIN.
func Build(snap state.Snapshot) View {
	if !snap.Session.Authenticated() {
		role := snap.Credentials.Role
		if role == session.RoleNone {
			role = session.RoleUser
		}
		return View{
			Page:  PageAuth,
			Title: TitleAuth,
			Auth: Auth{
				Username:     snap.Credentials.Username,
				Password:     snap.Credentials.Password,
				RoleOptions:  RoleOptions(),
				SelectedRole: RoleLabel(role),
			},
			InputSeq: snap.InputSeq,
			ResetGen: snap.ResetGen,
		}
	}

	form := Form{Heading: HeadingAdd, SubmitLabel: SubmitCreate, Draft: snap.Draft}
	if snap.Draft.Editing() {
		form.Heading = HeadingEdit
		form.SubmitLabel = SubmitUpdate
		form.ShowCancel = true
	}

	admin := snap.Session.Role.IsAdmin()
	items := make([]Item, 0, len(snap.Products))
	for _, p := range snap.Products {
		items = append(items, Item{
			Product:    p,
			Title:      p.Name,
			Details:    p.Description,
			Summary:    Summary(p),
			ShowEdit:   admin,
			ShowDelete: admin,
		})
	}
	return View{
		Page:     PageProducts,
		Title:    TitleProducts,
		Form:     form,
		Items:    items,
		InputSeq: snap.InputSeq,
		ResetGen: snap.ResetGen,
	}
}

// Summary форматирует строку цены и количества.
func Summary(p catalog.Product) string {
	return "Price: $" + strconv.FormatFloat(p.Price, 'f', -1, 64) +
		" | Quantity: " + strconv.Itoa(p.Quantity)
}

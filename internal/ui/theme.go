package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// catalogTheme: светлая палитра каталога поверх стандартной темы Fyne.
type catalogTheme struct {
	base fyne.Theme
}

func newCatalogTheme() fyne.Theme {
	return &catalogTheme{base: theme.LightTheme()}
}

func (t *catalogTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNameBackground:
		return color.NRGBA{R: 246, G: 247, B: 250, A: 255}
	case theme.ColorNamePrimary:
		return color.NRGBA{R: 22, G: 119, B: 89, A: 255}
	case theme.ColorNameError:
		return color.NRGBA{R: 200, G: 45, B: 45, A: 255}
	case theme.ColorNameInputBackground:
		return color.White
	default:
		return t.base.Color(name, variant)
	}
}

func (t *catalogTheme) Font(style fyne.TextStyle) fyne.Resource {
	return t.base.Font(style)
}

func (t *catalogTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return t.base.Icon(name)
}

func (t *catalogTheme) Size(name fyne.ThemeSizeName) float32 {
	if name == theme.SizeNamePadding {
		return 6
	}
	return t.base.Size(name)
}

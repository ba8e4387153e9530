//go:build windows

package main

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// reportFatal показывает ошибку запуска в MessageBox: у GUI-сборки нет консоли.
func reportFatal(err error) {
	fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
	text, convErr := windows.UTF16PtrFromString(err.Error())
	if convErr != nil {
		return
	}
	title, _ := windows.UTF16PtrFromString("Ecommerce App")
	_, _ = windows.MessageBox(0, text, title, windows.MB_OK|windows.MB_ICONERROR)
}

package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// Product: товар каталога в том виде, в каком его отдаёт сервер.
type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}

// Input: тело запроса на создание или изменение товара.
type Input struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}

// Draft хранит несохранённый ввод формы товара.
// EditID указывает на редактируемый товар; nil означает создание.
type Draft struct {
	Name        string
	Description string
	Price       string
	Quantity    string
	EditID      *int64
}

// Editing сообщает, редактируется ли существующий товар.
func (d Draft) Editing() bool {
	return d.EditID != nil
}

// DraftFrom копирует поля товара в черновик и запоминает его ID.
func DraftFrom(p Product) Draft {
	id := p.ID
	return Draft{
		Name:        p.Name,
		Description: p.Description,
		Price:       strconv.FormatFloat(p.Price, 'f', -1, 64),
		Quantity:    strconv.Itoa(p.Quantity),
		EditID:      &id,
	}
}

// WithFields возвращает копию черновика с новыми значениями полей формы
// и прежней целью редактирования.
func (d Draft) WithFields(fields Draft) Draft {
	fields.EditID = d.EditID
	return fields
}

// Input разбирает числовые поля. Пустое поле даёт ноль.
func (d Draft) Input() (Input, error) {
	price, err := parseFloat(d.Price)
	if err != nil {
		return Input{}, fmt.Errorf("price: %w", err)
	}
	quantity, err := parseInt(d.Quantity)
	if err != nil {
		return Input{}, fmt.Errorf("quantity: %w", err)
	}
	return Input{
		Name:        d.Name,
		Description: d.Description,
		Price:       price,
		Quantity:    quantity,
	}, nil
}

func parseFloat(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	return strconv.ParseFloat(value, 64)
}

func parseInt(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

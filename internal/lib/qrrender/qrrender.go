// Package qrrender превращает текст в PNG QR-код в виде data URL.
package qrrender

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const dataURLPrefix = "data:image/png;base64,"

// DefaultSize - сторона изображения в пикселях.
const DefaultSize = 300

// Renderer кодирует содержимое в QR с высоким уровнем коррекции ошибок.
type Renderer struct {
	size int
}

// New создаёт Renderer. size <= 0 означает DefaultSize.
func New(size int) *Renderer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Renderer{size: size}
}

// PNG возвращает PNG-изображение QR-кода.
func (r *Renderer) PNG(content string) ([]byte, error) {
	const op = "qrrender.PNG"
	png, err := qrcode.Encode(content, qrcode.High, r.size)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return png, nil
}

// DataURL возвращает изображение как data:image/png;base64,... для хранения и отдачи клиенту.
func (r *Renderer) DataURL(content string) (string, error) {
	const op = "qrrender.DataURL"
	png, err := r.PNG(content)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(png), nil
}

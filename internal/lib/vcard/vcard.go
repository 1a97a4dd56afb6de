// Package vcard собирает контактную карточку vCard 3.0 для QR-кода участника.
package vcard

import (
	"regexp"
	"strings"
	"time"
)

// DefaultNote - примечание, которое попадает в карточку, если другое не задано.
const DefaultNote = "Scanned from Connexon QR Code"

// nameSeparator разделяет имя и фамилию в FN, чтобы сканеры не переносили строку.
const nameSeparator = "\u00a0"

var whitespace = regexp.MustCompile(`\s+`)

// Phone - номер телефона в карточке.
type Phone struct {
	CountryCode string
	Number      string
}

// Contact - данные, из которых строится карточка. Пустые поля пропускаются.
type Contact struct {
	FirstName    string
	MiddleName   string
	LastName     string
	Phones       []Phone
	Email        string
	Birthday     *time.Time
	Address      string
	Organization string
	Title        string
	Website      string
	Note         string
	Revision     time.Time
}

// FullName возвращает отображаемое имя: имя с отчеством и фамилия через неразрывный пробел.
func (c Contact) FullName() string {
	return joinNonEmpty(nameSeparator, c.givenNames(), c.LastName)
}

func (c Contact) givenNames() string {
	return joinNonEmpty(" ", c.FirstName, c.MiddleName)
}

// Render возвращает текст карточки с переводами строк CRLF.
func Render(c Contact) string {
	lines := []string{
		"BEGIN:VCARD",
		"VERSION:3.0",
		"N:" + escape(c.LastName) + ";" + escape(c.givenNames()) + ";;;",
		"FN:" + escape(c.FullName()),
	}

	for _, p := range c.Phones {
		if strings.TrimSpace(p.Number) == "" {
			continue
		}
		lines = append(lines, "TEL;TYPE=CELL:"+whitespace.ReplaceAllString(p.CountryCode+p.Number, ""))
	}
	if c.Email != "" {
		lines = append(lines, "EMAIL;TYPE=WORK:"+c.Email)
	}
	if c.Birthday != nil {
		lines = append(lines, "BDAY:"+c.Birthday.Format(time.DateOnly))
	}
	if c.Address != "" {
		lines = append(lines, "ADR:;;"+escape(c.Address)+";;;;")
	}
	if c.Organization != "" {
		lines = append(lines, "ORG:"+escape(c.Organization))
	}
	if c.Title != "" {
		lines = append(lines, "TITLE:"+escape(c.Title))
	}
	if c.Website != "" {
		lines = append(lines, "URL:"+c.Website)
	}

	rev := c.Revision
	if rev.IsZero() {
		rev = time.Now()
	}
	lines = append(lines, "REV:"+rev.UTC().Format("2006-01-02T15:04:05.000Z"))

	note := c.Note
	if note == "" {
		note = DefaultNote
	}
	lines = append(lines, "NOTE:"+escape(note), "END:VCARD")

	return strings.Join(lines, "\r\n")
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

var escaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\r\n", `\n`, "\n", `\n`)

func escape(s string) string {
	return escaper.Replace(s)
}

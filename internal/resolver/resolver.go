// Package resolver maps a scanned code to the response the client receives.
package resolver

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"qrtrack/entity"
)

const (
	contentTypeHTML     = "text/html; charset=utf-8"
	contentTypeVCard    = "text/vcard"
	contentTypeCalendar = "text/calendar"
	fileVCard           = "contact.vcf"
	fileEvent           = "event.ics"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// theme carries the card template colors onto viewer pages
type theme struct {
	Background string
	Text       string
	Accent     string
	Font       string
}

type mediaPage struct {
	Theme theme
	Title string
	Label string
	URL   string
}

type textPage struct {
	Theme theme
	Title string
	Text  string
}

type wifiPage struct {
	WiFi
	Theme theme
	Title string
}

func themeOf(qr *entity.QRCode) theme {
	return theme{
		Background: value(qr.TemplateValue("backgroundColor")),
		Text:       value(qr.TemplateValue("textColor")),
		Font:       value(qr.TemplateValue("fontFamily")),
		Accent:     value(qr.StylingValue("fgColor")),
	}
}

func value(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Resolve covers every declared type; unknown types redirect to the content
func Resolve(qr *entity.QRCode) (Action, error) {
	th := themeOf(qr)
	switch qr.Type {
	case entity.TypeImage:
		return render("image.html", mediaPage{Theme: th, Title: "Scanned Image", Label: "Image", URL: qr.Content})
	case entity.TypePDF:
		return render("pdf.html", mediaPage{Theme: th, Title: "Scanned PDF", Label: "PDF", URL: qr.Content})
	case entity.TypeVideo:
		return render("video.html", mediaPage{Theme: th, Title: "Scanned Video", Label: "Video", URL: qr.Content})
	case entity.TypeAudio:
		return render("audio.html", mediaPage{Theme: th, Title: "Scanned Audio", Label: "Audio", URL: qr.Content})
	case entity.TypeText:
		return render("text.html", textPage{Theme: th, Title: "Scanned Text", Text: qr.Content})
	case entity.TypeWiFi:
		return render("wifi.html", wifiPage{WiFi: ParseWiFi(qr.Content), Theme: th, Title: "WiFi Network"})
	case entity.TypeVCard, entity.TypeMeCard:
		return attachment(qr.Content, contentTypeVCard, fileVCard), nil
	case entity.TypeEvent:
		return attachment(qr.Content, contentTypeCalendar, fileEvent), nil
	case entity.TypeURL, entity.TypeEmail, entity.TypePhone, entity.TypeSMS, entity.TypeLocation,
		entity.TypeUPI, entity.TypeInstagram, entity.TypeFacebook, entity.TypeYouTube, entity.TypeWhatsApp:
		return Redirect{URL: qr.Content}, nil
	default:
		return Redirect{URL: qr.Content}, nil
	}
}

func render(name string, data interface{}) (Action, error) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return Inline{ContentType: contentTypeHTML, Body: buf.Bytes()}, nil
}

func attachment(content, contentType, filename string) Attachment {
	return Attachment{
		ContentType: contentType,
		Filename:    filename,
		Body:        []byte(content),
	}
}

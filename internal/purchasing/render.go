package purchasing

import (
	"bytes"
	"embed"
	"html/template"
	"time"
)

//go:embed templates/order.html
var templateFS embed.FS

var orderTemplate = template.Must(template.New("order.html").Funcs(template.FuncMap{
	"amount": FormatAmount,
	"number": func(n int) string { return FormatNumber(int64(n)) },
	"date":   func(t time.Time) string { return t.Format("02/01/2006") },
}).ParseFS(templateFS, "templates/order.html"))

// RenderHTML produces the printable order document.
func RenderHTML(order Order) (string, error) {
	var buf bytes.Buffer
	if err := orderTemplate.Execute(&buf, order); err != nil {
		return "", err
	}
	return buf.String(), nil
}

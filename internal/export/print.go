package export

import (
	"bytes"
	"html/template"
	"time"
)

var printTemplate = template.Must(template.New("print").Funcs(template.FuncMap{
	"cell": text,
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; font-size: 12px; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #000; padding: 4px 6px; text-align: left; }
th { background: #E6F3FF; }
@media print { button { display: none; } }
</style>
</head>
<body onload="window.print()">
<h1>{{.Title}}</h1>
<p>Printed {{.PrintedAt}} &middot; {{len .Rows}} row(s)</p>
<table>
<thead><tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr>{{range .}}<td>{{cell .}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
</body>
</html>
`))

// PrintHTML renders t as a standalone page that opens the print dialog.
func PrintHTML(t Table) ([]byte, error) {
	var buf bytes.Buffer
	err := printTemplate.Execute(&buf, struct {
		Table
		PrintedAt string
	}{t, time.Now().Format("2006-01-02 15:04")})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

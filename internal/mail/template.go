package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"tour-booking/internal/data/entity"
)

var confirmationTmpl = template.Must(template.New("confirmation").Funcs(template.FuncMap{
	"money": func(cents int64, currency string) string {
		return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, currency)
	},
}).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8" /><title>Pago confirmado</title></head>
<body style="margin:0;padding:24px;background-color:#f4f6f8;font-family:Arial,Helvetica,sans-serif;">
  <table width="600" cellpadding="0" cellspacing="0" align="center" style="background:#ffffff;border-radius:8px;">
    <tr><td style="background:#0d9488;color:#ffffff;padding:20px 24px;">
      <h1 style="margin:0;font-size:22px;">Pago confirmado</h1>
      <p style="margin:4px 0 0;font-size:14px;">Gracias por elegir {{.Brand}}</p>
    </td></tr>
    <tr><td style="padding:24px;color:#333333;font-size:14px;line-height:1.6;">
      <p>Hola <strong>{{.C.CustomerName}}</strong>,</p>
      <p>Tu pago ha sido <strong>procesado exitosamente</strong>.</p>
      <p><strong>Código de reserva:</strong> {{.C.ConfirmationCode}}<br />
         <strong>Monto pagado:</strong> {{money .C.TotalCents .C.Currency}}<br />
         <strong>ID de orden:</strong> {{.C.OrderID}}</p>
      {{if .C.Items}}<table width="100%" cellpadding="6" style="border:1px solid #e5e7eb;">
        {{range .C.Items}}<tr><td>{{.Name}}</td><td>{{.Date}}</td><td>x{{.Quantity}}</td><td>{{money .TotalPriceCents $.C.Currency}}</td></tr>{{end}}
      </table>{{end}}
      {{if .C.Guest}}<p>Guarda este correo: el código de reserva es tu comprobante.</p>
      {{else if .ProfileURL}}<p><a href="{{.ProfileURL}}">Ir a mi panel de usuario</a></p>{{end}}
      <p>Nuestro equipo se pondrá en contacto contigo para coordinar tu experiencia.</p>
    </td></tr>
    <tr><td style="background:#f1f5f9;padding:16px 24px;font-size:12px;color:#64748b;text-align:center;">
      © {{.Year}} {{.Brand}} · Mensaje automático, por favor no respondas.
    </td></tr>
  </table>
</body>
</html>`))

func renderConfirmation(c entity.Confirmation, brand, profileURL string) (subject, html string, err error) {
	subject = "Pago confirmado - " + brand
	if c.Guest {
		subject = "Pago confirmado - Tu reserva en " + brand
	}

	var buf bytes.Buffer
	err = confirmationTmpl.Execute(&buf, struct {
		C          entity.Confirmation
		Brand      string
		ProfileURL string
		Year       int
	}{C: c, Brand: brand, ProfileURL: profileURL, Year: time.Now().Year()})
	if err != nil {
		return "", "", fmt.Errorf("render confirmation: %w", err)
	}

	return subject, buf.String(), nil
}

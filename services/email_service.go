package services

import (
	"fmt"
	"log"
	"net/smtp"
	"os"
	"strings"

	"backend/models"

	"golang.org/x/net/html"
)

// convertHTMLToText converts HTML content to plain text for email sending
func convertHTMLToText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		// If parsing fails, return the original content
		return htmlContent
	}

	var text strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			text.WriteString(n.Data)
		case html.ElementNode:
			switch n.Data {
			case "p", "div", "br", "h1", "h2", "h3", "h4", "h5", "h6":
				text.WriteString("\n")
			case "li":
				text.WriteString("- ")
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			extractText(child)
		}
	}
	extractText(doc)

	result := text.String()
	result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	return strings.TrimSpace(result)
}

// EmailService sends quote lifecycle notifications over SMTP.
type EmailService struct {
	host     string
	port     string
	username string
	password string
	from     string
}

// NewEmailService reads the SMTP configuration from the environment.
func NewEmailService() *EmailService {
	return &EmailService{
		host:     os.Getenv("SMTP_HOST"),
		port:     os.Getenv("SMTP_PORT"),
		username: os.Getenv("SMTP_USERNAME"),
		password: os.Getenv("SMTP_PASSWORD"),
		from:     os.Getenv("SMTP_FROM"),
	}
}

// Built-in notification templates keyed by quote status. {{placeholders}} are
// substituted from EmailData.
var statusTemplates = map[string]struct {
	subject string
	body    string
}{
	models.StatusSubmitted: {
		subject: "Votre demande de devis {{quote_number}} a bien été reçue",
		body: `<p>Bonjour {{client_name}},</p>
<p>Nous avons bien reçu votre demande de devis <b>{{quote_number}}</b> d'un montant estimé de {{total_amount}}.</p>
<p>Notre équipe revient vers vous sous 48h. Vous pouvez suivre votre demande ici : {{tracking_url}}</p>
<p>{{company_name}}</p>`,
	},
	models.StatusStaffAccepted: {
		subject: "Votre devis {{quote_number}} a été accepté",
		body: `<p>Bonjour {{client_name}},</p>
<p>Bonne nouvelle : votre devis <b>{{quote_number}}</b> ({{total_amount}}) a été validé par notre équipe.</p>
<p>{{company_name}}</p>`,
	},
	models.StatusRefused: {
		subject: "Votre devis {{quote_number}}",
		body: `<p>Bonjour {{client_name}},</p>
<p>Nous ne pouvons malheureusement pas donner suite à votre demande {{quote_number}}.</p>
<p>{{company_name}}</p>`,
	},
	models.StatusExpired: {
		subject: "Votre devis {{quote_number}} a expiré",
		body: `<p>Bonjour {{client_name}},</p>
<p>Votre devis <b>{{quote_number}}</b> est arrivé à expiration. Contactez-nous pour le réactiver.</p>
<p>{{company_name}}</p>`,
	},
	models.StatusContractSigned: {
		subject: "Contrat signé : {{quote_number}}",
		body: `<p>Bonjour {{client_name}},</p>
<p>Votre contrat <b>{{quote_number}}</b> est signé. Merci de votre confiance !</p>
<p>{{company_name}}</p>`,
	},
}

// processTemplate substitutes {{placeholders}} from the email data.
func (es *EmailService) processTemplate(templateStr string, data models.EmailData) string {
	variables := map[string]string{
		"client_name":  data.ClientName,
		"email":        data.Email,
		"quote_number": data.QuoteNumber,
		"status":       data.Status,
		"total_amount": data.TotalAmount,
		"company_name": data.CompanyName,
		"tracking_url": data.TrackingURL,
	}
	result := templateStr
	for key, value := range variables {
		result = strings.ReplaceAll(result, fmt.Sprintf("{{%s}}", key), value)
	}
	return result
}

// NotifyStatusChange sends the notification for a status transition when a
// template exists for it. Fire-and-forget: failures are logged, never
// propagated, so a mail outage cannot block a transition.
func (es *EmailService) NotifyStatusChange(q *models.Quote, status string, company models.CompanyProfile) {
	tmpl, ok := statusTemplates[status]
	if !ok || q.Client.Email == "" {
		return
	}

	fmtr := NewFormatter()
	total := ""
	if q.Amounts != nil {
		total = fmtr.Money(q.Amounts.TotalWithTax)
	}
	data := models.EmailData{
		ClientName:  q.Client.Name,
		Email:       q.Client.Email,
		QuoteNumber: q.Number,
		Status:      status,
		TotalAmount: total,
		CompanyName: company.Name,
		TrackingURL: company.TrackingURL + "/" + q.Number,
	}

	subject := es.processTemplate(tmpl.subject, data)
	body := convertHTMLToText(es.processTemplate(tmpl.body, data))

	go func() {
		if err := es.sendEmail(q.Client.Email, subject, body); err != nil {
			log.Printf("[mail] failed to notify %s for quote %s: %v", q.Client.Email, q.Number, err)
		}
	}()
}

// sendEmail sends a plain-text email using SMTP.
func (es *EmailService) sendEmail(to, subject, body string) error {
	if es.host == "" {
		return fmt.Errorf("SMTP_HOST is not configured")
	}

	auth := smtp.PlainAuth("", es.username, es.password, es.host)

	headers := []string{
		"From: " + es.from,
		"To: " + to,
		"Subject: " + subject,
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}
	msg := []byte(strings.Join(headers, "\r\n") + "\r\n")

	return smtp.SendMail(es.host+":"+es.port, auth, es.from, []string{to}, msg)
}

// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// LinkEmailData holds data for the login and invite email templates.
type LinkEmailData struct {
	SiteName    string
	GroupName   string
	InviterName string // invite only
	Role        string // invite only
	MagicLink   string
	ExpiresIn   string // e.g., "15 minutes"
}

// BuildLoginEmail creates a sign-in link email with both HTML and text bodies.
func BuildLoginEmail(data LinkEmailData) Email {
	return Email{
		To:       "", // Set by caller
		Subject:  fmt.Sprintf("Sign in to %s on %s", data.GroupName, data.SiteName),
		TextBody: buildLoginText(data),
		HTMLBody: render(loginHTML, data),
	}
}

// BuildInviteEmail creates an invitation email with both HTML and text bodies.
func BuildInviteEmail(data LinkEmailData) Email {
	subject := fmt.Sprintf("You're invited to %s on %s", data.GroupName, data.SiteName)
	if data.InviterName != "" {
		subject = fmt.Sprintf("%s invited you to %s on %s", data.InviterName, data.GroupName, data.SiteName)
	}
	return Email{
		To:       "", // Set by caller
		Subject:  subject,
		TextBody: buildInviteText(data),
		HTMLBody: render(inviteHTML, data),
	}
}

func buildLoginText(data LinkEmailData) string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("Click this link to sign in to %s:\n", data.GroupName))
	buf.WriteString(data.MagicLink + "\n\n")
	buf.WriteString(fmt.Sprintf("The link works once and expires in %s.\n\n", data.ExpiresIn))
	buf.WriteString("If you did not request this link, you can safely ignore this email.\n")
	return buf.String()
}

func buildInviteText(data LinkEmailData) string {
	var buf bytes.Buffer
	if data.InviterName != "" {
		buf.WriteString(fmt.Sprintf("%s invited you to join %s as %s.\n\n", data.InviterName, data.GroupName, article(data.Role)))
	} else {
		buf.WriteString(fmt.Sprintf("You have been invited to join %s as %s.\n\n", data.GroupName, article(data.Role)))
	}
	buf.WriteString("Click this link to accept:\n")
	buf.WriteString(data.MagicLink + "\n\n")
	buf.WriteString(fmt.Sprintf("The link works once and expires in %s.\n", data.ExpiresIn))
	return buf.String()
}

func article(role string) string {
	if role == "admin" {
		return "an admin"
	}
	return "a member"
}

var (
	loginHTML  = template.Must(template.New("login").Parse(layoutHTML + loginBodyHTML))
	inviteHTML = template.Must(template.New("invite").Funcs(template.FuncMap{"article": article}).Parse(layoutHTML + inviteBodyHTML))
)

func render(t *template.Template, data LinkEmailData) string {
	var buf bytes.Buffer
	_ = t.ExecuteTemplate(&buf, "layout", data)
	return buf.String()
}

const layoutHTML = `{{define "layout"}}<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.SiteName}}</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px; box-shadow: 0 2px 4px rgba(0, 0, 0, 0.1);">
          <!-- Header -->
          <tr>
            <td style="padding: 32px 32px 24px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #4f46e5;">{{.SiteName}}</h1>
            </td>
          </tr>

          <!-- Content -->
          <tr>
            <td style="padding: 32px;">
              {{template "body" .}}

              <!-- Button -->
              <table role="presentation" width="100%" cellspacing="0" cellpadding="0">
                <tr>
                  <td align="center">
                    <a href="{{.MagicLink}}" style="display: inline-block; padding: 14px 32px; background-color: #4f46e5; color: #ffffff; text-decoration: none; font-size: 16px; font-weight: 500; border-radius: 6px;">
                      {{template "button" .}}
                    </a>
                  </td>
                </tr>
              </table>

              <p style="margin: 24px 0 0; font-size: 13px; color: #9ca3af; text-align: center;">
                This link works once and expires in {{.ExpiresIn}}.
              </p>
            </td>
          </tr>

          <!-- Footer -->
          <tr>
            <td style="padding: 24px 32px; background-color: #f9fafb; border-top: 1px solid #e5e7eb; border-radius: 0 0 8px 8px;">
              <p style="margin: 0; font-size: 12px; color: #9ca3af; text-align: center;">
                If you were not expecting this email, you can safely ignore it.
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>{{end}}`

const loginBodyHTML = `{{define "body"}}<p style="margin: 0 0 24px; font-size: 16px; color: #374151; line-height: 1.5;">
                Click the button below to sign in to <strong>{{.GroupName}}</strong>.
              </p>{{end}}{{define "button"}}Sign In{{end}}`

const inviteBodyHTML = `{{define "body"}}<p style="margin: 0 0 24px; font-size: 16px; color: #374151; line-height: 1.5;">
                {{if .InviterName}}{{.InviterName}} invited you{{else}}You have been invited{{end}} to join <strong>{{.GroupName}}</strong> as {{article .Role}}.
              </p>{{end}}{{define "button"}}Accept Invite{{end}}`

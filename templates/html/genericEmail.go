package templates

import (
	"fmt"
	"html"
	"strings"
)

// RenderGenericEmail generates branded HTML for an email.
// The subject is displayed in the header banner, and bodyContent is plain text
// that gets HTML-escaped and has newlines converted to <br> tags.
func RenderGenericEmail(subject, bodyContent string) string {
	escaped := html.EscapeString(bodyContent)
	htmlBody := strings.ReplaceAll(escaped, "\n", "<br>")
	return render(subject, htmlBody, "")
}

// RenderResolutionEmail tells a citizen their report was resolved. The proof
// image is shown inline and linked when present.
func RenderResolutionEmail(name, title, note, imageURL, reportURL string) string {
	if name == "" {
		name = "there"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Hi %s,</p>", html.EscapeString(name))
	fmt.Fprintf(&b, "<p>Your report <strong>%s</strong> has been marked as resolved.</p>", html.EscapeString(title))
	if note != "" {
		fmt.Fprintf(&b, `<p class="note">%s</p>`, strings.ReplaceAll(html.EscapeString(note), "\n", "<br>"))
	}
	if imageURL != "" {
		safe := html.EscapeString(imageURL)
		fmt.Fprintf(&b, `<p><a href="%s"><img src="%s" alt="Resolution proof" width="520"></a></p>`, safe, safe)
	}
	b.WriteString("<p>If the issue is still there you can reopen the report from your dashboard.</p>")

	action := ""
	if reportURL != "" {
		action = fmt.Sprintf(`<a class="button" href="%s">View report</a>`, html.EscapeString(reportURL))
	}
	return render("Your report was resolved", b.String(), action)
}

func render(subject, htmlBody, action string) string {
	safeSubject := html.EscapeString(subject)

	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1, minimum-scale=1, maximum-scale=1">
  <title>%s</title>
  <style type="text/css">
    body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 0; background-color: #f4f6f8; }
    .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; }
    .header { background: linear-gradient(135deg, #1f7a4d 0%%, #2f9e68 100%%); padding: 32px 30px; text-align: center; }
    .header h1 { color: #fff; margin: 0; font-size: 22px; font-weight: 700; }
    .content { padding: 32px 30px; color: #1f2933; line-height: 1.6; font-size: 15px; }
    .content .note { border-left: 3px solid #2f9e68; padding-left: 12px; color: #3e4c59; }
    .button { display: inline-block; margin-top: 12px; padding: 10px 18px; background: #1f7a4d; color: #fff; border-radius: 4px; text-decoration: none; }
    .footer { padding: 24px; text-align: center; color: #7b8794; font-size: 12px; border-top: 1px solid #e4e7eb; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>%s</h1>
    </div>
    <div class="content">
      %s
      %s
    </div>
    <div class="footer">
      <p>You are receiving this because you filed a report with the civic grievance portal.</p>
    </div>
  </div>
</body>
</html>`, safeSubject, safeSubject, htmlBody, action)
}

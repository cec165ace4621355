package templates

import (
  "bytes"
  "html/template"
)

type VerificationEmailData struct {
  Logo          string
  RecipientName string
  Passcode      string
  Challenge     string
  ValidMinutes  int
}

const verificationHTML = `
<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8"/>
  <title>Snapmoment Verification</title>
  <style>
    body {
      margin: 0;
      padding: 0;
      font-family: Arial, sans-serif;
      background-color: #f5f5f5;
      color: #333;
    }
    .email-container {
      width: 100%;
      max-width: 600px;
      margin: 0 auto;
      background-color: #ffffff;
      border-radius: 6px;
      overflow: hidden;
      box-shadow: 0 2px 5px rgba(0,0,0,0.1);
    }
    .header {
      background-color: #333;
      padding: 20px;
      text-align: center;
      color: #fff;
    }
    .header img {
      width: 120px;
      height: auto;
      margin-bottom: 10px;
    }
    .header h1 {
      margin: 10px 0 0;
      font-size: 24px;
    }
    .content {
      padding: 20px;
      text-align: left;
    }
    .passcode-container {
      text-align: center;
      margin: 20px 0;
    }
    .passcode {
      display: inline-block;
      padding: 12px 24px;
      background-color: #f0f0f0;
      border-radius: 4px;
      font-size: 32px;
      font-weight: bold;
      letter-spacing: 8px;
      color: #333;
    }
    .footer {
      font-size: 12px;
      color: #999;
      text-align: center;
      padding: 10px 20px;
    }
    .highlight {
      font-weight: bold;
      color: #333;
    }
  </style>
</head>
<body>
  <table class="email-container" role="presentation" cellspacing="0" cellpadding="0">
    <tr>
      <td>
        <!-- HEADER SECTION -->
        <div class="header">
          <img src="{{.Logo}}" alt="Snapmoment Logo" />
          <h1>Your verification code</h1>
        </div>

        <!-- BODY CONTENT -->
        <div class="content">
          {{if .RecipientName}}
            <p>Hi <span class="highlight">{{.RecipientName}}</span>,</p>
          {{else}}
            <p>Hello,</p>
          {{end}}

          <p>Use the code below to continue. It expires in
             <span class="highlight">{{.ValidMinutes}} minutes</span>.</p>

          <div class="passcode-container">
            <span class="passcode">{{.Passcode}}</span>
          </div>

          <p>If you did not request this code, you can safely ignore this email.</p>
        </div>

        <!-- FOOTER SECTION -->
        <div class="footer">
          <p>&copy; 2026 Snapmoment. All rights reserved.</p>
        </div>
      </td>
    </tr>
  </table>
</body>
</html>
`

func RenderVerificationHTML(data VerificationEmailData) (string, error) {
  tmpl, err := template.New("verification").Parse(verificationHTML)
  if err != nil {
    return "", err
  }
  var buf bytes.Buffer
  if err := tmpl.Execute(&buf, data); err != nil {
    return "", err
  }
  return buf.String(), nil
}

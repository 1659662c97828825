package contact

import (
	"bytes"
	"html/template"
	"strings"
	textTemplate "text/template"
)

// MaxSubjectLength is the longest subject, in characters, an OutboundMessage carries.
const MaxSubjectLength = 255

const subjectPrefix = "New website enquiry from "

// htmlTmpl renders the enquiry. html/template escapes every field, so
// submitted markup is shown literally rather than interpreted.
var htmlTmpl = template.Must(template.New("enquiry").Parse(
	`<p><b>Name:</b> {{.Name}}</p>` +
		`<p><b>Email:</b> {{.Email}}</p>` +
		`<p><b>Phone:</b> {{.Phone}}</p>` +
		`<p><b>Message:</b><br/>{{range $i, $line := .Lines}}{{if $i}}<br/>{{end}}{{$line}}{{end}}</p>`,
))

var textTmpl = textTemplate.Must(textTemplate.New("enquiry").Parse(`Name: {{.Name}}
Email: {{.Email}}
Phone: {{.Phone}}

{{.Message}}
`))

type enquiryView struct {
	Name    string
	Email   string
	Phone   string
	Message string
	Lines   []string
}

// Compose derives the outbound message for sub. The result depends only on
// its inputs.
func Compose(sub Submission, addrs Addresses) (OutboundMessage, error) {
	phone := sub.Phone
	if strings.TrimSpace(phone) == "" {
		phone = "-"
	}
	message := strings.ReplaceAll(sub.Message, "\r\n", "\n")
	view := enquiryView{
		Name:    sub.Name,
		Email:   sub.Email,
		Phone:   phone,
		Message: message,
		Lines:   strings.Split(message, "\n"),
	}

	var htmlBuf, textBuf bytes.Buffer
	if err := htmlTmpl.Execute(&htmlBuf, view); err != nil {
		return OutboundMessage{}, err
	}
	if err := textTmpl.Execute(&textBuf, view); err != nil {
		return OutboundMessage{}, err
	}

	return OutboundMessage{
		Subject:   BuildSubject(sub.Name),
		HTMLBody:  htmlBuf.String(),
		TextBody:  textBuf.String(),
		From:      addrs.From,
		Recipient: addrs.To,
		ReplyTo:   sub.Email,
	}, nil
}

// BuildSubject returns the single-line subject for an enquiry from name,
// truncated to MaxSubjectLength characters.
func BuildSubject(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	return truncate(subjectPrefix+name, MaxSubjectLength)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
